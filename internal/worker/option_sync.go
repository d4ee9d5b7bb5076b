// Package worker copies dimension options from an upstream source into
// the local option store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/log"
	"budgetfilter/internal/options"
)

// OptionStore is the write side of the local option store.
type OptionStore interface {
	ReplaceOptions(ctx context.Context, field dimension.Field, opts []dimension.Option) error
	Count(ctx context.Context) (map[dimension.Field]int, error)
}

// Report summarizes one sync pass.
type Report struct {
	Synced  map[dimension.Field]int
	Skipped []dimension.Field
	Failed  []dimension.Field
}

// OptionSyncWorker pulls every field from source and replaces it in store.
type OptionSyncWorker struct {
	source options.Source
	store  OptionStore
	fields []dimension.Field
	logger *log.Logger
}

func NewOptionSyncWorker(source options.Source, store OptionStore, fields []dimension.Field, logger *log.Logger) *OptionSyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &OptionSyncWorker{
		source: source,
		store:  store,
		fields: fields,
		logger: logger.WithComponent(log.ComponentSync),
	}
}

// SyncAll loads all fields concurrently and writes the ones that loaded.
// An upstream field that fails or comes back empty keeps its stored
// options; a partial outage never wipes the store.
func (w *OptionSyncWorker) SyncAll(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{Synced: make(map[dimension.Field]int, len(w.fields))}

	catalog, loadErr := options.LoadAll(ctx, w.source, w.fields)
	var errs []error
	if loadErr != nil {
		errs = append(errs, loadErr)
	}

	for _, field := range w.fields {
		opts, ok := catalog[field]
		if !ok {
			report.Failed = append(report.Failed, field)
			continue
		}
		if len(opts) == 0 {
			w.logger.WarnContext(ctx, "Upstream returned no options, keeping stored ones",
				log.FieldField, string(field))
			report.Skipped = append(report.Skipped, field)
			continue
		}
		if err := w.store.ReplaceOptions(ctx, field, opts); err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", field, err))
			report.Failed = append(report.Failed, field)
			continue
		}
		report.Synced[field] = len(opts)
	}

	err := errors.Join(errs...)
	fields := log.NewFields().WithOperation(log.OpSync)
	fields["synced"] = len(report.Synced)
	fields["failed"] = len(report.Failed)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	if err != nil {
		w.logger.ErrorContext(ctx, "Option sync finished with errors", fields.WithError(err).ToSlice()...)
	} else {
		w.logger.InfoContext(ctx, "Option sync finished", fields.ToSlice()...)
	}
	return report, err
}

// SyncIfEmpty runs SyncAll only when the store holds no options yet.
func (w *OptionSyncWorker) SyncIfEmpty(ctx context.Context) (bool, error) {
	counts, err := w.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("check option count: %w", err)
	}
	for _, n := range counts {
		if n > 0 {
			return false, nil
		}
	}
	_, err = w.SyncAll(ctx)
	return true, err
}

// Run syncs immediately and then on every tick until ctx is done.
func (w *OptionSyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if _, err := w.SyncAll(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// errors are logged by SyncAll; the next tick retries
			_, _ = w.SyncAll(ctx)
		}
	}
}
