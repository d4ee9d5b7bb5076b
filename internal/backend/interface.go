// Package backend builds the option source selected by configuration.
package backend

import (
	"context"
	"time"

	"budgetfilter/internal/cache"
	"budgetfilter/internal/options"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the option source and optional cleanup function
type Result struct {
	Source options.Source
	// Cache is nil when caching is disabled.
	Cache   cache.Cleaner
	Cleanup CleanupFunc
	// Ready probes the backing store for readiness checks. Always set.
	Ready func(ctx context.Context) error
}

// Close runs the cleanup function if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates option sources based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for option source creation
type Config struct {
	Type BackendType

	// memory
	DataDirectory string

	// sqlite
	SQLiteDBPath string

	// remote
	APIURL     string
	APIToken   string
	APIRetries int

	// sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// caching, disabled when CacheTTL is zero
	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RemoteBackend BackendType = "remote"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RemoteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
