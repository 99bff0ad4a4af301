package backend

import (
	"context"
	"errors"

	"veraz/internal/auth"
	"veraz/internal/registry"
	"veraz/internal/services"
)

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// Check is a dependency probe surfaced on /readyz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// UserStore is a credential store that can also manage accounts.
type UserStore interface {
	auth.CredentialStore
	auth.UserWriter
}

// Backends is everything the dashboard needs from the outside world.
type Backends struct {
	Registry registry.Fetcher
	Users    UserStore

	// Recorder is set with the sqlite user backend, Publisher when AMQP is
	// configured. Both may be nil.
	Recorder  services.AuditRecorder
	Publisher services.AuditPublisher

	Checks []Check

	cleanups []CleanupFunc
}

// Close runs the cleanups in reverse order of creation.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanups = nil
	return errors.Join(errs...)
}

func (b *Backends) onClose(fn CleanupFunc) {
	b.cleanups = append(b.cleanups, fn)
}

// Factory creates backends based on configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Backends, error)
}

// Kind names a backend implementation.
type Kind string

const (
	SQLite Kind = "sqlite"
	Memory Kind = "memory"
	BCRA   Kind = "bcra"
)

func (k Kind) String() string {
	return string(k)
}
