package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Collection is a typed view over the JSON array stored under one key.
// Every mutation reads the whole array, changes a copy and writes it back
// while holding the key's writer lock.
type Collection[T any] struct {
	docs *DocumentRepository
	key  string
	idOf func(*T) *string
}

// NewCollection binds a collection to key. idOf must return a pointer to the
// record's id field.
func NewCollection[T any](docs *DocumentRepository, key string, idOf func(*T) *string) *Collection[T] {
	return &Collection[T]{docs: docs, key: key, idOf: idOf}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string {
	return c.key
}

// Version returns the write counter of the underlying key.
func (c *Collection[T]) Version() uint64 {
	return c.docs.Version(c.key)
}

// GetAll returns every record in storage order. A missing key reads as empty.
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	raw, ok, err := c.docs.Load(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	items := make([]T, 0)
	if !ok || len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return items, nil
}

// Snapshot returns every record together with the version it was read at.
func (c *Collection[T]) Snapshot(ctx context.Context) ([]T, uint64, error) {
	version := c.Version()
	items, err := c.GetAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, version, nil
}

// FindByID returns the record with id or sql.ErrNoRows.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	items, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if *c.idOf(&items[i]) == id {
			item := items[i]
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

// Save replaces the record sharing item's id or appends it. Records without
// an id get a new uuid.
func (c *Collection[T]) Save(ctx context.Context, item *T) error {
	release := c.docs.Lock(c.key)
	defer release()

	items, err := c.GetAll(ctx)
	if err != nil {
		return err
	}

	id := c.idOf(item)
	if *id == "" {
		*id = uuid.NewString()
	}

	replaced := false
	for i := range items {
		if *c.idOf(&items[i]) == *id {
			items[i] = *item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, *item)
	}
	return c.write(ctx, items)
}

// Append adds every record in one write, assigning ids where missing.
func (c *Collection[T]) Append(ctx context.Context, records ...T) ([]T, error) {
	return c.AppendChecked(ctx, nil, records...)
}

// AppendChecked runs guard against the current contents under the writer
// lock and appends records only when it returns nil.
func (c *Collection[T]) AppendChecked(ctx context.Context, guard func(existing []T) error, records ...T) ([]T, error) {
	if len(records) == 0 {
		return records, nil
	}

	release := c.docs.Lock(c.key)
	defer release()

	items, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(items); err != nil {
			return nil, err
		}
	}

	added := make([]T, 0, len(records))
	for i := range records {
		record := records[i]
		if id := c.idOf(&record); *id == "" {
			*id = uuid.NewString()
		}
		added = append(added, record)
	}
	items = append(items, added...)

	if err := c.write(ctx, items); err != nil {
		return nil, err
	}
	return added, nil
}

// Update applies fn to the record with id and persists the result. fn errors
// abort the write.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	release := c.docs.Lock(c.key)
	defer release()

	items, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if *c.idOf(&items[i]) != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return nil, err
		}
		*c.idOf(&items[i]) = id
		if err := c.write(ctx, items); err != nil {
			return nil, err
		}
		updated := items[i]
		return &updated, nil
	}
	return nil, sql.ErrNoRows
}

// Delete removes the record with id or returns sql.ErrNoRows.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	release := c.docs.Lock(c.key)
	defer release()

	items, err := c.GetAll(ctx)
	if err != nil {
		return err
	}
	kept := make([]T, 0, len(items))
	for i := range items {
		if *c.idOf(&items[i]) != id {
			kept = append(kept, items[i])
		}
	}
	if len(kept) == len(items) {
		return sql.ErrNoRows
	}
	return c.write(ctx, kept)
}

// Seed writes defaults only when the key does not exist yet.
func (c *Collection[T]) Seed(ctx context.Context, defaults []T) (bool, error) {
	release := c.docs.Lock(c.key)
	defer release()

	_, ok, err := c.docs.Load(ctx, c.key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", c.key, err)
	}
	if ok {
		return false, nil
	}
	if defaults == nil {
		defaults = make([]T, 0)
	}
	if err := c.write(ctx, defaults); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[T]) write(ctx context.Context, items []T) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.docs.Store(ctx, c.key, payload); err != nil {
		return fmt.Errorf("store %s: %w", c.key, err)
	}
	return nil
}
