package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DocumentBackend persists one JSON document per collection key.
type DocumentBackend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, payload []byte) error
	LoadAll(ctx context.Context, keys []string) (map[string][]byte, error)
	ReplaceAll(ctx context.Context, docs map[string][]byte) error
	Clear(ctx context.Context, keys []string) error
}

// PostgresDocumentStore keeps collections in a single JSONB table.
type PostgresDocumentStore struct {
	db *sqlx.DB
}

// NewPostgresDocumentStore constructs the backend.
func NewPostgresDocumentStore(db *sqlx.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

// EnsureSchema creates the collections table when missing.
func (s *PostgresDocumentStore) EnsureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS collections (
	key TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure collections schema: %w", err)
	}
	return nil
}

// Load returns the document stored under key.
func (s *PostgresDocumentStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT payload FROM collections WHERE key = $1`
	var payload []byte
	if err := s.db.GetContext(ctx, &payload, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load collection %s: %w", key, err)
	}
	return payload, true, nil
}

const upsertDocumentQuery = `INSERT INTO collections (key, payload, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

// Store upserts the document under key.
func (s *PostgresDocumentStore) Store(ctx context.Context, key string, payload []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertDocumentQuery, key, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("store collection %s: %w", key, err)
	}
	return nil
}

type documentRow struct {
	Key     string `db:"key"`
	Payload []byte `db:"payload"`
}

// LoadAll returns the documents present for keys.
func (s *PostgresDocumentStore) LoadAll(ctx context.Context, keys []string) (map[string][]byte, error) {
	const query = `SELECT key, payload FROM collections WHERE key = ANY($1)`
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	result := make(map[string][]byte, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Payload
	}
	return result, nil
}

// ReplaceAll writes every document in a single transaction.
func (s *PostgresDocumentStore) ReplaceAll(ctx context.Context, docs map[string][]byte) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace collections: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, key := range sortedKeys(docs) {
		if _, err = tx.ExecContext(ctx, upsertDocumentQuery, key, docs[key], now); err != nil {
			return fmt.Errorf("replace collection %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace collections: %w", err)
	}
	return nil
}

// Clear deletes the documents under keys.
func (s *PostgresDocumentStore) Clear(ctx context.Context, keys []string) error {
	const query = `DELETE FROM collections WHERE key = ANY($1)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(keys)); err != nil {
		return fmt.Errorf("clear collections: %w", err)
	}
	return nil
}

// MemoryDocumentStore is an in-process backend.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryDocumentStore returns an empty backend.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string][]byte)}
}

// Load returns a copy of the document under key.
func (s *MemoryDocumentStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Store replaces the document under key.
func (s *MemoryDocumentStore) Store(ctx context.Context, key string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("store collection %s: invalid json", key)
	}
	s.mu.Lock()
	s.docs[key] = append([]byte(nil), payload...)
	s.mu.Unlock()
	return nil
}

// LoadAll returns copies of the documents present for keys.
func (s *MemoryDocumentStore) LoadAll(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if payload, ok := s.docs[key]; ok {
			result[key] = append([]byte(nil), payload...)
		}
	}
	return result, nil
}

// ReplaceAll swaps in every document at once.
func (s *MemoryDocumentStore) ReplaceAll(ctx context.Context, docs map[string][]byte) error {
	for key, payload := range docs {
		if !json.Valid(payload) {
			return fmt.Errorf("replace collection %s: invalid json", key)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, payload := range docs {
		s.docs[key] = append([]byte(nil), payload...)
	}
	return nil
}

// Clear removes the documents under keys.
func (s *MemoryDocumentStore) Clear(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.docs, key)
	}
	return nil
}
