// Package budget persists token budget counters so limits survive restarts.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/thepool/internal/db"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Counters stores per-window token totals as plain integer keys.
type Counters struct {
	store store
}

// New creates a counter store.
func New(s store) *Counters {
	return &Counters{store: s}
}

// Add increments key by n. The ttl is set once, on the first write of the window.
func (c *Counters) Add(ctx context.Context, key string, n int64, ttl time.Duration) error {
	if err := c.store.IncrBy(ctx, key, n); err != nil {
		return fmt.Errorf("add to %s: %w", key, err)
	}
	if ttl <= 0 {
		return nil
	}
	if err := c.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// Load returns the counter value, or 0 for a window nobody has written yet.
func (c *Counters) Load(ctx context.Context, key string) (int64, error) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("load %s: not an integer: %w", key, err)
	}
	return n, nil
}
