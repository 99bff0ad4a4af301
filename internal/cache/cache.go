// Package cache holds size-bounded, expiring in-memory caches and the
// janitor that sweeps them.
package cache

import (
	"context"
	"time"

	"veraz/internal/log"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically removes expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	logger *log.Logger
}

func NewJanitor(logger *log.Logger) *Janitor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Janitor{logger: logger.WithComponent(log.ComponentCache)}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Sweep cleans every cache once and returns the number of evicted entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps every interval until ctx is done. It returns nil on
// cancellation so it can run inside an errgroup.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		}
	}
}
