package backend

import (
	"context"
	"fmt"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/log"
	"budgetfilter/internal/options"
	"budgetfilter/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	fields []dimension.Field
}

// NewFactory creates a factory; fields are the dimensions the memory
// backend loads files for.
func NewFactory(logger *log.Logger, fields []dimension.Field) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	if len(fields) == 0 {
		fields = dimension.Default().Fields()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentOptions),
		fields: fields,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res = f.createMemoryBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case RemoteBackend:
		res, err = f.createRemoteBackend(config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if res.Ready == nil {
		res.Ready = func(context.Context) error { return nil }
	}
	if config.CacheTTL > 0 {
		cached := options.NewCached(res.Source, config.CacheSize, config.CacheTTL)
		res.Source = cached
		res.Cache = cached.Cleaner()
	}

	f.logger.InfoContext(ctx, "Initialized option source",
		log.FieldBackend, config.Type.String(),
		"cache_ttl", config.CacheTTL,
		"cache_size", config.CacheSize)
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *Result {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data/options"
	}
	return &Result{Source: options.NewStaticFromDir(dataDir, f.fields)}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	store, err := storage.Open(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite option store: %w", err)
	}
	return &Result{
		Source:  store,
		Cleanup: store.Close,
		Ready:   store.Ping,
	}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*Result, error) {
	remote, err := options.NewRemote(options.RemoteConfig{
		BaseURL:  config.APIURL,
		Token:    config.APIToken,
		RetryMax: config.APIRetries,
		Logger:   f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dimensions API client: %w", err)
	}
	return &Result{Source: remote}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	src, err := options.NewSheets(ctx, options.SheetsConfig{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleCredentialsFile,
		CredentialsJSON: config.GoogleCredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return &Result{Source: src}, nil
}
