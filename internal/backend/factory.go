package backend

import (
	"context"
	"fmt"
	"time"

	"veraz/internal/amqp"
	"veraz/internal/auth"
	"veraz/internal/core"
	"veraz/internal/log"
	"veraz/internal/registry/bcra"
	regmemory "veraz/internal/registry/memory"
	"veraz/internal/storage"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create implements Factory.Create. On error every resource opened so far is
// released.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (_ *Backends, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	if err := f.createUsers(b, config); err != nil {
		return nil, err
	}
	if err := seedAdmin(ctx, b.Users, config.AdminUsername, config.AdminPassword); err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}
	if err := f.createRegistry(b, config); err != nil {
		return nil, err
	}
	f.createPublisher(b, config)

	return b, nil
}

func (f *DefaultFactory) createUsers(b *Backends, config Config) error {
	switch config.Users {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		b.Users = repo
		b.Recorder = repo
		b.Checks = append(b.Checks, Check{Name: "sqlite", Ping: repo.Ping})
		b.onClose(repo.Close)
		f.logger.Info("Initialized SQLite user store", "db_path", config.SQLiteDBPath)
	case Memory:
		b.Users = auth.NewMemoryStore()
		f.logger.Info("Initialized memory user store")
	}
	return nil
}

func (f *DefaultFactory) createRegistry(b *Backends, config Config) error {
	switch config.Registry {
	case BCRA:
		client, err := bcra.New(bcra.Options{
			BaseURL:            config.RegistryBaseURL,
			HostHeader:         config.RegistryHostHeader,
			InsecureSkipVerify: config.RegistryInsecureSkipVerify,
			Timeout:            config.RegistryTimeout,
			Logger:             f.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize BCRA client: %w", err)
		}
		b.Registry = client
		f.logger.Info("Initialized BCRA registry client",
			"base_url", config.RegistryBaseURL,
			"host_header", config.RegistryHostHeader,
			"insecure_skip_verify", config.RegistryInsecureSkipVerify)
	case Memory:
		b.Registry = regmemory.New(config.RegistryDataDir)
		f.logger.Info("Initialized memory registry", "data_directory", config.RegistryDataDir)
	}
	return nil
}

// createPublisher connects to the broker when configured. A broker that is
// down is not fatal: queries still work, they just are not audited remotely.
func (f *DefaultFactory) createPublisher(b *Backends, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without audit events", log.FieldError, err.Error())
		return
	}
	b.Publisher = client
	b.onClose(client.Close)
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
}

// seedAdmin creates the bootstrap administrator when the store is empty.
func seedAdmin(ctx context.Context, store UserStore, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return store.SaveUser(ctx, auth.User{
		Username:     username,
		PasswordHash: hash,
		Role:         core.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
}
