package backend

import (
	"fmt"
	"time"

	"veraz/internal/config"
)

// Config selects and configures the backends.
type Config struct {
	Users    Kind // sqlite or memory
	Registry Kind // bcra or memory

	SQLiteDBPath string

	AdminUsername string
	AdminPassword string

	RegistryBaseURL            string
	RegistryHostHeader         string
	RegistryInsecureSkipVerify bool
	RegistryTimeout            time.Duration
	RegistryDataDir            string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Users:    Kind(appConfig.UserBackend),
		Registry: Kind(appConfig.RegistryBackend),

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AdminUsername: appConfig.AdminUsername,
		AdminPassword: appConfig.AdminPassword,

		RegistryBaseURL:            appConfig.RegistryBaseURL,
		RegistryHostHeader:         appConfig.RegistryHostHeader,
		RegistryInsecureSkipVerify: appConfig.RegistryInsecureSkipVerify,
		RegistryTimeout:            appConfig.RegistryTimeout,
		RegistryDataDir:            appConfig.RegistryDataDir,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	switch c.Users {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite user backend")
		}
	case Memory:
	default:
		return fmt.Errorf("invalid user backend: %s", c.Users)
	}

	switch c.Registry {
	case BCRA:
		if c.RegistryBaseURL == "" {
			return fmt.Errorf("registry base URL is required for bcra registry backend")
		}
	case Memory:
		// An empty directory serves nothing; allowed for tests that Put reports.
	default:
		return fmt.Errorf("invalid registry backend: %s", c.Registry)
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

// UserKinds returns the valid user backend kinds.
func UserKinds() []Kind {
	return []Kind{SQLite, Memory}
}

// RegistryKinds returns the valid registry backend kinds.
func RegistryKinds() []Kind {
	return []Kind{BCRA, Memory}
}
