package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/kv"
	"github.com/yangwenmai/storyverse/internal/metrics"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/notify"
)

// RecentSearches is a short most-recent-first list of distinct query strings.
type RecentSearches struct {
	storage  kv.Storage
	notifier *notify.Notifier
	limit    int
	logger   *zap.Logger

	mu sync.Mutex
}

// NewRecentSearches creates the list. limit <= 0 uses DefaultRecentLimit.
func NewRecentSearches(s kv.Storage, n *notify.Notifier, limit int, logger *zap.Logger) *RecentSearches {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentSearches{
		storage:  s,
		notifier: n,
		limit:    limit,
		logger:   logger.Named("store").With(zap.String("collection", KeyRecentSearches)),
	}
}

// List returns the queries, most recent first. Failures read as an empty list.
func (r *RecentSearches) List(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(ctx)
}

// Add moves query to the front, dropping any earlier copy and anything past
// the limit. Blank queries are ignored. An unreadable list is left as it is.
func (r *RecentSearches) Add(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx), nil
	}

	updated, err := r.add(ctx, query)
	if err != nil {
		return nil, err
	}
	if r.notifier != nil {
		r.notifier.Notify(notify.TopicRecentSearches)
	}
	return updated, nil
}

func (r *RecentSearches) add(ctx context.Context, query string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read(ctx)
	if err != nil {
		metrics.StoreOperations.WithLabelValues(KeyRecentSearches, "save", metrics.ResultError).Inc()
		r.logger.Error("save aborted", zap.Error(err))
		return nil, err
	}
	updated := make([]string, 0, len(current)+1)
	updated = append(updated, query)
	for _, q := range current {
		if q != query {
			updated = append(updated, q)
		}
	}
	if len(updated) > r.limit {
		updated = updated[:r.limit]
	}

	b, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}
	if err := r.storage.Set(ctx, KeyRecentSearches, b); err != nil {
		metrics.StoreOperations.WithLabelValues(KeyRecentSearches, "save", metrics.ResultError).Inc()
		return nil, fmt.Errorf("persist %s: %w", KeyRecentSearches, err)
	}
	metrics.StoreOperations.WithLabelValues(KeyRecentSearches, "save", metrics.ResultOK).Inc()
	return updated, nil
}

func (r *RecentSearches) list(ctx context.Context) []string {
	queries, err := r.read(ctx)
	if err != nil {
		return r.failed(err)
	}
	return queries
}

func (r *RecentSearches) read(ctx context.Context) ([]string, error) {
	raw, found, err := r.storage.Get(ctx, KeyRecentSearches)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", KeyRecentSearches, model.ErrUnreadable, err)
	}
	if !found {
		return []string{}, nil
	}
	var queries []string
	if err := json.Unmarshal(raw, &queries); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", KeyRecentSearches, model.ErrUnreadable, err)
	}
	if queries == nil {
		queries = []string{}
	}
	return queries, nil
}

func (r *RecentSearches) failed(err error) []string {
	r.logger.Warn("treating collection as empty", zap.Error(err))
	metrics.LoadFailures.WithLabelValues(KeyRecentSearches).Inc()
	return []string{}
}
