// Package worker watches how much of the storage quota each collection uses.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/kv"
	"github.com/yangwenmai/storyverse/internal/metrics"
)

// WarnFraction is the share of the quota above which a collection is reported.
const WarnFraction = 0.8

// Usage is the measured size of one collection.
type Usage struct {
	Key   string
	Bytes int
	// Fraction of the quota in use; zero when there is no quota.
	Fraction float64
}

// Worker periodically measures the collections stored under keys.
type Worker struct {
	storage  kv.Storage
	keys     []string
	quota    int
	interval time.Duration
	logger   *zap.Logger

	warned map[string]bool
}

// New creates a Worker. quota <= 0 disables the warnings but keeps the gauges.
func New(storage kv.Storage, keys []string, quota int, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		storage:  storage,
		keys:     keys,
		quota:    quota,
		interval: interval,
		logger:   logger.Named("worker"),
		warned:   make(map[string]bool),
	}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("quota worker started", zap.Duration("interval", w.interval), zap.Int("quota", w.quota))
	for {
		w.Scan(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("quota worker stopped")
			return
		case <-time.After(w.interval):
		}
	}
}

// Scan measures every collection once, updates the gauges and logs
// collections that crossed WarnFraction in either direction.
func (w *Worker) Scan(ctx context.Context) []Usage {
	out := make([]Usage, 0, len(w.keys))
	for _, key := range w.keys {
		raw, _, err := w.storage.Get(ctx, key)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("measure collection", zap.String("collection", key), zap.Error(err))
			}
			continue
		}

		u := Usage{Key: key, Bytes: len(raw)}
		if w.quota > 0 {
			u.Fraction = float64(u.Bytes) / float64(w.quota)
		}
		metrics.CollectionBytes.WithLabelValues(key).Set(float64(u.Bytes))
		w.report(u)
		out = append(out, u)
	}
	return out
}

func (w *Worker) report(u Usage) {
	near := w.quota > 0 && u.Fraction >= WarnFraction
	switch {
	case near && !w.warned[u.Key]:
		w.logger.Warn("collection close to storage quota",
			zap.String("collection", u.Key),
			zap.Int("bytes", u.Bytes),
			zap.Int("quota", w.quota))
	case !near && w.warned[u.Key]:
		w.logger.Info("collection back under quota threshold", zap.String("collection", u.Key))
	}
	w.warned[u.Key] = near
}
