package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"budgetfilter/internal/backend"
	"budgetfilter/internal/cli"
	"budgetfilter/internal/config"
	"budgetfilter/internal/dimension"
	"budgetfilter/internal/log"
	"budgetfilter/internal/storage"
	"budgetfilter/internal/worker"
)

var errUsage = errors.New("usage")

type syncFlags struct {
	from     string
	interval time.Duration
	ifEmpty  bool
}

func main() {
	var f syncFlags
	flag.StringVar(&f.from, "from", "", "upstream backend: remote or sheets (default: OPTIONS_BACKEND)")
	flag.DurationVar(&f.interval, "interval", 0, "keep running and resync on this interval")
	flag.BoolVar(&f.ifEmpty, "if-empty", false, "only sync when the local store holds no options")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentSync)

	if err := run(logger, f, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("Option sync failed", log.FieldError, err)
		os.Exit(1)
	}
}

// checkFlags rejects option combinations run cannot honour.
func checkFlags(f syncFlags, cfg *config.Config) error {
	if f.from != "" {
		cfg.OptionsBackend = f.from
	}
	if cfg.OptionsBackend != config.BackendRemote && cfg.OptionsBackend != config.BackendSheets {
		return fmt.Errorf("%w: options-sync needs an upstream backend (remote or sheets), got %q", errUsage, cfg.OptionsBackend)
	}
	if f.ifEmpty && f.interval > 0 {
		return fmt.Errorf("%w: -if-empty cannot be combined with -interval", errUsage)
	}
	if f.interval < 0 {
		return fmt.Errorf("%w: -interval must be positive", errUsage)
	}
	return nil
}

func run(logger *log.Logger, f syncFlags, out io.Writer) error {
	cfg := config.Load()
	if err := checkFlags(f, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := dimension.Default()
	upstreamCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	// every pass must hit the upstream
	upstreamCfg.CacheTTL = 0

	ctx := context.Background()
	upstream, err := backend.NewFactory(logger, registry.Fields()).CreateBackend(ctx, upstreamCfg)
	if err != nil {
		return fmt.Errorf("upstream option source: %w", err)
	}
	defer upstream.Close()

	store, err := storage.Open(cfg.SQLiteDBPath, logger)
	if err != nil {
		return fmt.Errorf("open option store: %w", err)
	}
	defer store.Close()

	return syncOptions(ctx, logger, worker.NewOptionSyncWorker(upstream.Source, store, registry.Fields(), logger), f, out)
}

func syncOptions(ctx context.Context, logger *log.Logger, w *worker.OptionSyncWorker, f syncFlags, out io.Writer) error {
	if f.interval > 0 {
		runCtx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
		logger.Info("Starting periodic option sync", "interval", f.interval.String())
		err := w.Run(runCtx, f.interval)
		<-done
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if f.ifEmpty {
		ran, err := w.SyncIfEmpty(syncCtx)
		if err != nil {
			return err
		}
		if !ran {
			logger.Info("Option store already populated, nothing to do")
		}
		return nil
	}

	report, err := w.SyncAll(syncCtx)
	for _, field := range sortedFields(report.Synced) {
		fmt.Fprintf(out, "%-8s %d options\n", field, report.Synced[field])
	}
	return err
}

func sortedFields(synced map[dimension.Field]int) []dimension.Field {
	var fields []dimension.Field
	for _, field := range dimension.Default().Fields() {
		if _, ok := synced[field]; ok {
			fields = append(fields, field)
		}
	}
	return fields
}
