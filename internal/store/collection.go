// Package store keeps galleries of generated artifacts. Each collection is
// persisted as one JSON array under one storage key and is always read and
// written whole.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/filter"
	"github.com/yangwenmai/storyverse/internal/kv"
	"github.com/yangwenmai/storyverse/internal/metrics"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/notify"
)

// Order decides where Save places a new entry.
type Order int

const (
	// Append keeps entries oldest first.
	Append Order = iota
	// Prepend keeps entries newest first.
	Prepend
)

// Config describes one collection.
type Config[T model.Entry] struct {
	// Key is the storage key the collection lives under.
	Key string
	// Topic is notified after every successful write.
	Topic notify.Topic
	Order Order
	// Limit caps the collection size; the oldest entries are dropped first. Zero means unbounded.
	Limit int
	// Confirm gates Delete and ClearAll.
	Confirm Confirmer
	// Toggle flips the favorite flag. Nil for kinds without favorites.
	Toggle func(T) T
	// Noun names one entry in confirmation prompts.
	Noun string
}

// Collection is a persisted, ordered set of artifacts of one kind.
//
// Writes inside one process are serialised. Subscribers are notified after
// the lock is released, so they may Load from their handlers. Processes
// sharing a storage overwrite each other's whole collection: the last
// writer wins.
type Collection[T model.Entry] struct {
	cfg      Config[T]
	storage  kv.Storage
	notifier *notify.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	loadErr error
}

// NewCollection creates a collection. notifier may be nil.
func NewCollection[T model.Entry](storage kv.Storage, notifier *notify.Notifier, cfg Config[T], logger *zap.Logger) *Collection[T] {
	if cfg.Confirm == nil {
		cfg.Confirm = NeverConfirm
	}
	if cfg.Noun == "" {
		cfg.Noun = "entry"
	}
	return &Collection[T]{
		cfg:      cfg,
		storage:  storage,
		notifier: notifier,
		logger:   logger.Named("store").With(zap.String("collection", cfg.Key)),
	}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string { return c.cfg.Key }

// Topic returns the notification topic.
func (c *Collection[T]) Topic() notify.Topic { return c.cfg.Topic }

// SupportsFavorites reports whether ToggleFavorite is available.
func (c *Collection[T]) SupportsFavorites() bool { return c.cfg.Toggle != nil }

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Load returns the whole collection. A missing, unreadable or corrupt
// collection is returned as empty; the failure is logged and kept for
// LastLoadError.
func (c *Collection[T]) Load(ctx context.Context) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// LastLoadError returns the failure hidden by the most recent Load, or nil.
func (c *Collection[T]) LastLoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Get returns the entry with id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	for _, it := range c.Load(ctx) {
		if it.EntryID() == id {
			return it, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %q: %w", c.cfg.Noun, id, model.ErrNotFound)
}

// Filter returns the entries matching query in collection order.
func (c *Collection[T]) Filter(ctx context.Context, query string) []T {
	return filter.Entries(c.Load(ctx), query)
}

func (c *Collection[T]) load(ctx context.Context) []T {
	c.loadErr = nil
	items, err := c.read(ctx)
	if err != nil {
		return c.loadFailed(err)
	}
	return items
}

// read is the strict form of load used by writes. A collection that cannot
// be read or parsed is never overwritten; ClearAll is the way out of a
// corrupt value.
func (c *Collection[T]) read(ctx context.Context) ([]T, error) {
	raw, found, err := c.storage.Get(ctx, c.cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", c.cfg.Key, model.ErrUnreadable, err)
	}
	if !found {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", c.cfg.Key, model.ErrUnreadable, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// readForWrite reads the collection ahead of op and records a failed op
// when it cannot be read.
func (c *Collection[T]) readForWrite(ctx context.Context, op string) ([]T, error) {
	items, err := c.read(ctx)
	if err != nil {
		c.loadErr = err
		c.record(op, metrics.ResultError)
		c.logger.Error(op+" aborted", zap.Error(err))
		return nil, err
	}
	return items, nil
}

func (c *Collection[T]) loadFailed(err error) []T {
	c.loadErr = err
	c.logger.Warn("treating collection as empty", zap.Error(err))
	metrics.LoadFailures.WithLabelValues(c.cfg.Key).Inc()
	return []T{}
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Save adds item and persists the collection. Once Save returns, every
// subsequent Load observes item. A collection that cannot be read is left
// as it is and the error wraps model.ErrUnreadable.
func (c *Collection[T]) Save(ctx context.Context, item T) error {
	if item.EntryID() == "" {
		c.record("save", metrics.ResultError)
		return fmt.Errorf("save %s: empty id: %w", c.cfg.Noun, model.ErrInvalidInput)
	}

	if err := c.save(ctx, item); err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Collection[T]) save(ctx context.Context, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.readForWrite(ctx, "save")
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.EntryID() == item.EntryID() {
			c.record("save", metrics.ResultError)
			return fmt.Errorf("save %s: duplicate id %q: %w", c.cfg.Noun, item.EntryID(), model.ErrInvalidInput)
		}
	}

	var updated []T
	if c.cfg.Order == Prepend {
		updated = append([]T{item}, items...)
		if c.cfg.Limit > 0 && len(updated) > c.cfg.Limit {
			updated = updated[:c.cfg.Limit]
		}
	} else {
		updated = append(items, item)
		if c.cfg.Limit > 0 && len(updated) > c.cfg.Limit {
			updated = updated[len(updated)-c.cfg.Limit:]
		}
	}

	if err := c.persist(ctx, updated); err != nil {
		c.record("save", metrics.ResultError)
		return err
	}
	c.record("save", metrics.ResultOK)
	c.logger.Debug("saved", zap.String("id", item.EntryID()), zap.Int("size", len(updated)))
	return nil
}

// Delete removes the entry with id after the Confirmer approves. The prompt
// is issued even when id does not exist. Deleting a missing id returns
// false and leaves the collection untouched.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	if !c.cfg.Confirm.Confirm(ctx, fmt.Sprintf("Delete this %s?", c.cfg.Noun)) {
		c.record("delete", metrics.ResultDeclined)
		return false, model.ErrConfirmationDeclined
	}

	deleted, err := c.delete(ctx, id)
	if deleted {
		c.notify()
	}
	return deleted, err
}

func (c *Collection[T]) delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.readForWrite(ctx, "delete")
	if err != nil {
		return false, err
	}
	kept := make([]T, 0, len(items))
	for _, it := range items {
		if it.EntryID() != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		c.record("delete", metrics.ResultNoop)
		return false, nil
	}

	if err := c.persist(ctx, kept); err != nil {
		c.record("delete", metrics.ResultError)
		return false, err
	}
	c.record("delete", metrics.ResultOK)
	c.logger.Info("deleted", zap.String("id", id))
	return true, nil
}

// ToggleFavorite flips the favorite flag of the entry with id and returns the
// updated entry. A missing id returns false and changes nothing.
func (c *Collection[T]) ToggleFavorite(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if c.cfg.Toggle == nil {
		return zero, false, fmt.Errorf("%s: %w", c.cfg.Key, model.ErrFavoritesUnsupported)
	}

	updated, found, err := c.toggle(ctx, id)
	if found {
		c.notify()
	}
	return updated, found, err
}

func (c *Collection[T]) toggle(ctx context.Context, id string) (T, bool, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.readForWrite(ctx, "favorite")
	if err != nil {
		return zero, false, err
	}
	idx := -1
	for i, it := range items {
		if it.EntryID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.record("favorite", metrics.ResultNoop)
		return zero, false, nil
	}

	items[idx] = c.cfg.Toggle(items[idx])
	if err := c.persist(ctx, items); err != nil {
		c.record("favorite", metrics.ResultError)
		return zero, false, err
	}
	c.record("favorite", metrics.ResultOK)
	return items[idx], true, nil
}

// ClearAll removes the whole collection after the Confirmer approves.
func (c *Collection[T]) ClearAll(ctx context.Context) error {
	if !c.cfg.Confirm.Confirm(ctx, fmt.Sprintf("Clear every %s? This cannot be undone.", c.cfg.Noun)) {
		c.record("clear", metrics.ResultDeclined)
		return model.ErrConfirmationDeclined
	}

	if err := c.clear(ctx); err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Collection[T]) clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.Remove(ctx, c.cfg.Key); err != nil {
		c.record("clear", metrics.ResultError)
		return fmt.Errorf("clear %s: %w", c.cfg.Key, err)
	}
	c.loadErr = nil
	c.record("clear", metrics.ResultOK)
	c.logger.Info("cleared")
	return nil
}

func (c *Collection[T]) persist(ctx context.Context, items []T) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.cfg.Key, err)
	}
	if err := c.storage.Set(ctx, c.cfg.Key, b); err != nil {
		c.logger.Error("persist failed", zap.Error(err))
		return fmt.Errorf("persist %s: %w", c.cfg.Key, err)
	}
	c.loadErr = nil
	return nil
}

func (c *Collection[T]) notify() {
	if c.notifier != nil && c.cfg.Topic != "" {
		c.notifier.Notify(c.cfg.Topic)
	}
}

func (c *Collection[T]) record(op, result string) {
	metrics.StoreOperations.WithLabelValues(c.cfg.Key, op, result).Inc()
}
