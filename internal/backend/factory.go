package backend

import (
	"context"
	"fmt"

	"hostel/internal/adapters"
	"hostel/internal/log"
	"hostel/internal/metrics"
	"hostel/internal/storage"
	"hostel/internal/store"
	"hostel/internal/store/memory"
)

// DefaultFactory builds memory and sqlite backends.
type DefaultFactory struct {
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewFactory returns a factory whose stores report to m. A nil m disables
// instrumentation.
func NewFactory(logger *log.Logger, m *metrics.Metrics) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend), metrics: m}
}

// CreateBackend builds the backend described by config.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	if f.metrics != nil {
		res.Store = adapters.NewInstrumentedStore(res.Store, f.metrics, f.logger)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("SQLite database unreachable: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var st store.Store = memory.New()
	if config.SeedFile != "" {
		seeded, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		st = seeded
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return &Result{
		Store: st,
		Ready: func(context.Context) error { return nil },
	}, nil
}
