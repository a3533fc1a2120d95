// Package kv provides the whole-value key/value persistence that artifact
// collections are stored in. It plays the role browser local storage plays
// for the web client: one key per collection, whole-value reads and writes.
package kv

import (
	"context"
	"fmt"

	"github.com/yangwenmai/storyverse/internal/model"
)

// DefaultMaxValueBytes mirrors the per-origin budget browsers give local storage.
const DefaultMaxValueBytes = 5 << 20

// Storage is a string-keyed store of opaque values.
type Storage interface {
	// Get returns the value stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Option configures a Storage implementation.
type Option func(*options)

type options struct {
	maxValueBytes int
}

// WithMaxValueBytes sets the largest value Set accepts. Zero or less disables the check.
func WithMaxValueBytes(n int) Option {
	return func(o *options) { o.maxValueBytes = n }
}

func buildOptions(opts []Option) options {
	o := options{maxValueBytes: DefaultMaxValueBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) checkQuota(key string, value []byte) error {
	if o.maxValueBytes > 0 && len(value) > o.maxValueBytes {
		return fmt.Errorf("set %q: %d bytes over %d byte limit: %w", key, len(value), o.maxValueBytes, model.ErrQuotaExceeded)
	}
	return nil
}
