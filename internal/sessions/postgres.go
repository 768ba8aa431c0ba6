package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/conductor/pkg/models"
	_ "github.com/lib/pq"
)

// PostgresStore is the same JSON-blob-per-row Store implementation as
// SQLiteStore, against lib/pq, for deployments that already run Postgres
// for everything else.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn and ensures the
// sessions table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			has_activity BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Create(ctx context.Context) (*models.Session, error) {
	session := &models.Session{ID: uuid.NewString()}
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt

	doc, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, doc, has_activity, updated_at) VALUES ($1, $2, $3, $4)
	`, session.ID, doc, session.HasActivity(), session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM sessions WHERE id = $1`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) Put(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	existing, err := s.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	clone := session.Clone()
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()

	doc, err := json.Marshal(clone)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET doc = $1, has_activity = $2, updated_at = $3 WHERE id = $4
	`, doc, clone.HasActivity(), clone.UpdatedAt, clone.ID)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]*models.Session, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM sessions WHERE has_activity = true
		ORDER BY updated_at DESC LIMIT $1 OFFSET $2
	`, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var session models.Session
		if err := json.Unmarshal(doc, &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		out = append(out, &session)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE has_activity = false`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
