package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/conductor/pkg/models"
)

// maxMessagesPerSession limits messages stored per session to prevent
// unbounded memory growth. When exceeded, old messages are trimmed to
// maintain the limit.
const maxMessagesPerSession = 1000

// MemoryStore is an in-memory Store implementation, grounded on the
// deep-clone-on-read/write discipline of the original gateway session
// store, for testing and single-process deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*models.Session{}}
}

func (m *MemoryStore) Create(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[session.ID] = session
	return session.Clone(), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if len(session.History) > maxMessagesPerSession {
		excess := len(session.History) - maxMessagesPerSession
		clone := session.Clone()
		clone.History = clone.History[excess:]
		return clone, nil
	}
	return session.Clone(), nil
}

// Put replaces the stored session's history, plan, and metadata wholesale.
// Put is the single write path: append-a-message and update-the-plan both
// go through it, so every write sees the most recent UpdatedAt.
func (m *MemoryStore) Put(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[session.ID]
	if !ok {
		return ErrNotFound
	}
	clone := session.Clone()
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	if len(clone.History) > maxMessagesPerSession {
		excess := len(clone.History) - maxMessagesPerSession
		clone.History = clone.History[excess:]
	}
	m.sessions[clone.ID] = clone
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Session
	for _, session := range m.sessions {
		if !session.HasActivity() {
			continue
		}
		out = append(out, session)
	}
	sortSessionsByUpdatedAtDesc(out)

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > len(out) {
		return []*models.Session{}, nil
	}
	end := len(out)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	cloned := make([]*models.Session, 0, end-start)
	for _, s := range out[start:end] {
		cloned = append(cloned, s.Clone())
	}
	return cloned, nil
}

func (m *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if !session.HasActivity() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func sortSessionsByUpdatedAtDesc(sessions []*models.Session) {
	for i := 1; i < len(sessions); i++ {
		for j := i; j > 0 && sessions[j].UpdatedAt.After(sessions[j-1].UpdatedAt); j-- {
			sessions[j], sessions[j-1] = sessions[j-1], sessions[j]
		}
	}
}
