package blob

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS workspace_objects (
    id SERIAL PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    name TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(workspace_id, name)
);
CREATE INDEX IF NOT EXISTS idx_workspace_objects_workspace_id ON workspace_objects(workspace_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, workspaceID, name string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	workspaceID, name, err := validateKey(workspaceID, name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	size := int64(len(content))
	_, err = s.db.ExecContext(ctx, `
INSERT INTO workspace_objects (workspace_id, name, content, size, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (workspace_id, name)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at
`, workspaceID, name, content, size, time.Now())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, workspaceID, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	workspaceID, name, err := validateKey(workspaceID, name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM workspace_objects WHERE workspace_id=$1 AND name=$2`, workspaceID, name).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return content, err
}

// Delete removes one object. Deleting an absent object is not an error.
func (s *PostgresStore) Delete(ctx context.Context, workspaceID, name string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	workspaceID, name, err := validateKey(workspaceID, name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM workspace_objects WHERE workspace_id=$1 AND name=$2`, workspaceID, name)
	return err
}

func (s *PostgresStore) DeleteAll(ctx context.Context, workspaceID string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	workspaceID, err := validateWorkspace(workspaceID)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM workspace_objects WHERE workspace_id=$1`, workspaceID)
	return err
}

func (s *PostgresStore) List(ctx context.Context, workspaceID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	workspaceID, err := validateWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM workspace_objects WHERE workspace_id=$1 ORDER BY name`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			continue
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *PostgresStore) GetURL(ctx context.Context, workspaceID, name string) (string, error) {
	// Content lives in a BYTEA column; there is no direct URL.
	return "", nil
}
