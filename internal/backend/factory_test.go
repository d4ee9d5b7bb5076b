package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budgetfilter/internal/config"
	"budgetfilter/internal/dimension"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{OptionsBackend: "bogus"}
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for invalid backend")
	}

	app = &config.Config{
		OptionsBackend:   "remote",
		DimensionsAPIURL: "https://dims.example.com",
		OptionsCacheSize: 8,
		OptionsCacheTTL:  time.Minute,
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != RemoteBackend || cfg.APIURL != app.DimensionsAPIURL || cfg.CacheSize != 8 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"remote without url", Config{Type: RemoteBackend}, "dimensions API URL is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Google Spreadsheet ID is required"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"}, "GoogleCredentialsFile"},
		{"invalid", Config{Type: "csv"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackendCached(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fund.txt"), []byte("100|General\n200|Capital\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFactory(nil, nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		DataDirectory: dir,
		CacheSize:     4,
		CacheTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if res.Cache == nil {
		t.Fatal("expected a cache when CacheTTL is set")
	}
	if err := res.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	opts, err := res.Source.Options(context.Background(), dimension.Fund)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) != 2 || opts[1].Label != "Capital" {
		t.Fatalf("unexpected options %v", opts)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	f := NewFactory(nil, nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "options.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if res.Cache != nil {
		t.Fatal("caching should be off without a TTL")
	}
	if err := res.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	opts, err := res.Source.Options(context.Background(), dimension.Dept)
	if err != nil || len(opts) != 0 {
		t.Fatalf("Options = %v, %v", opts, err)
	}
}
