// Package memory is an in-process audit sheet used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"veraz/internal/core"
	"veraz/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

var _ sheets.AuditAppender = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{}
}

// FailWith makes every following append return err. Pass nil to recover.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Sheet) AppendQuery(_ context.Context, rec core.QueryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.rows = append(s.rows, sheets.AuditRow(rec))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the appended rows.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
