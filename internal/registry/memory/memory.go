// Package memory serves registry answers from JSON fixtures, one file per
// CUIT named "{cuit}.json" in the registry wire format.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"veraz/internal/core"
	"veraz/internal/registry"
)

type Store struct {
	dir string

	mu      sync.RWMutex
	reports map[string]core.Report
}

var _ registry.Fetcher = (*Store)(nil)

// New returns a store reading fixtures from dir. An empty dir serves only
// reports added with Put.
func New(dir string) *Store {
	return &Store{dir: dir, reports: make(map[string]core.Report)}
}

// Put registers a report, taking precedence over fixture files.
func (s *Store) Put(report core.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.CUIT] = report
}

func (s *Store) FetchHistory(ctx context.Context, cuit string) (core.Report, error) {
	if err := core.ValidateCUIT(cuit); err != nil {
		return core.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Report{}, err
	}

	s.mu.RLock()
	report, ok := s.reports[cuit]
	s.mu.RUnlock()
	if ok {
		return report, nil
	}
	if s.dir == "" {
		return core.Report{}, &registry.Error{Status: 404}
	}

	f, err := os.Open(filepath.Join(s.dir, cuit+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return core.Report{}, &registry.Error{Status: 404}
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return registry.DecodeReport(cuit, f)
}
