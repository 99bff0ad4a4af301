// Package registry is the boundary to the credit registry (BCRA Central de
// Deudores). Adapters live in subpackages; this package holds the port, the
// wire format and the error taxonomy they share.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"veraz/internal/core"
)

// Fetcher retrieves the debt history of a tax id.
type Fetcher interface {
	FetchHistory(ctx context.Context, cuit string) (core.Report, error)
}

var ErrNotFound = errors.New("registry: cuit not found")

// Error is an upstream failure reported by the registry itself.
type Error struct {
	Status   int
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("registry: status %d", e.Status)
	}
	return fmt.Sprintf("registry: status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Message is the text shown to users for this failure.
func (e *Error) Message() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, " ")
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return e.Error()
}
