package backend

import (
	"context"

	"fintrack/internal/auth"
	"fintrack/internal/store"
)

// Result bundles everything a configured backend provides: the two store
// collaborators, the user registry, and an optional cleanup function.
type Result struct {
	Stores  store.Stores
	Users   auth.UserStore
	Cleanup CleanupFunc
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mongo specific
	MongoURI      string
	MongoDatabase string

	// Memory backend seed directory
	SeedDir string
}

// Type selects the storage backend at startup. This is the single
// configuration axis that distinguishes the local-only revisions from the
// remote multi-user one.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
	MongoBackend  Type = "mongo"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
