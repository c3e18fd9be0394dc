package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/remote"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.NewFromEnv(log.ComponentApp)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional. Without it the sqlite backend still works, records
	// just stay local until a worker with a queue catches up later.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync",
				log.FieldError, err)
		} else {
			repo.SetSyncPublisher(amqpClient)
			f.logger.Info("Initialized AMQP sync publisher",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	cleanup := func() error {
		if amqpClient != nil {
			amqpClient.Close()
		}
		return repo.Close()
	}

	return &Result{
		Stores:  store.Stores{Transactions: repo.Transactions(), Categories: repo.Categories()},
		Users:   repo,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*Result, error) {
	stores, err := remote.Connect(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	f.logger.Info("Initialized mongo backend", "database", config.MongoDatabase)

	return &Result{
		Stores:  store.Stores{Transactions: stores.Transactions(), Categories: stores.Categories()},
		Users:   stores,
		Cleanup: func() error { return stores.Disconnect(context.Background()) },
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	seedDir := config.SeedDir
	if seedDir == "" {
		seedDir = "data"
	}

	st := memory.NewFromFiles(seedDir)

	f.logger.Info("Initialized memory backend", "seed_directory", seedDir)

	return &Result{
		Stores:  store.Stores{Transactions: st.Transactions(), Categories: st.Categories()},
		Users:   memory.NewUsers(),
		Cleanup: nil,
	}, nil
}
