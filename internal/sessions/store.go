package sessions

import (
	"context"

	"github.com/haasonsaas/conductor/pkg/models"
)

// Store is the interface for session persistence: create, get, list, put,
// delete, and cleanup (spec.md §3, §4.3). Implementations are memory,
// sqlite, and postgres backed.
type Store interface {
	Create(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Put(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]*models.Session, error)

	// Cleanup deletes sessions with no activity (no messages, no enabled
	// plan entry) and returns the count removed.
	Cleanup(ctx context.Context) (int, error)
}

// ListOptions configures session listing.
type ListOptions struct {
	Limit  int
	Offset int
}
