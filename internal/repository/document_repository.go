package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DocumentRepository fronts a DocumentBackend. It serializes writers per
// collection key, tracks a version counter per key and optionally simulates
// storage latency.
type DocumentRepository struct {
	backend DocumentBackend
	latency time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	versions map[string]uint64
}

// NewDocumentRepository wraps backend.
func NewDocumentRepository(backend DocumentBackend, latency time.Duration, logger *zap.Logger) *DocumentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRepository{
		backend:  backend,
		latency:  latency,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
		versions: make(map[string]uint64),
	}
}

// Lock acquires the writer lock for key and returns its release function.
func (r *DocumentRepository) Lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Version returns the number of writes observed for key by this process.
func (r *DocumentRepository) Version(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[key]
}

func (r *DocumentRepository) bump(keys ...string) {
	r.mu.Lock()
	for _, key := range keys {
		r.versions[key]++
	}
	r.mu.Unlock()
}

func (r *DocumentRepository) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Load returns the raw document under key.
func (r *DocumentRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := r.wait(ctx); err != nil {
		return nil, false, err
	}
	return r.backend.Load(ctx, key)
}

// Store writes the raw document under key.
func (r *DocumentRepository) Store(ctx context.Context, key string, payload []byte) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	if err := r.backend.Store(ctx, key, payload); err != nil {
		r.logger.Warn("store collection failed", zap.String("key", key), zap.Error(err))
		return err
	}
	r.bump(key)
	return nil
}

// LoadAll returns the raw documents present for keys.
func (r *DocumentRepository) LoadAll(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.backend.LoadAll(ctx, keys)
}

// ReplaceAll overwrites every given key atomically with respect to other
// writers of those keys.
func (r *DocumentRepository) ReplaceAll(ctx context.Context, docs map[string][]byte) error {
	keys := sortedKeys(docs)
	release := r.lockAll(keys)
	defer release()

	if err := r.wait(ctx); err != nil {
		return err
	}
	if err := r.backend.ReplaceAll(ctx, docs); err != nil {
		r.logger.Error("replace collections failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	r.bump(keys...)
	return nil
}

// Clear removes the documents under keys.
func (r *DocumentRepository) Clear(ctx context.Context, keys []string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	release := r.lockAll(sorted)
	defer release()

	if err := r.wait(ctx); err != nil {
		return err
	}
	if err := r.backend.Clear(ctx, sorted); err != nil {
		r.logger.Error("clear collections failed", zap.Strings("keys", sorted), zap.Error(err))
		return err
	}
	r.bump(sorted...)
	return nil
}

// lockAll takes the writer locks in sorted key order.
func (r *DocumentRepository) lockAll(sorted []string) func() {
	releases := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		releases = append(releases, r.Lock(key))
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

func sortedKeys(docs map[string][]byte) []string {
	keys := make([]string, 0, len(docs))
	for key := range docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
