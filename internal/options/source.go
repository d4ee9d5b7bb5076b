// Package options supplies the selectable values of each dimension field.
// Option data is presentation only; nothing here feeds the criteria compiler.
package options

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"budgetfilter/internal/dimension"
)

// Source returns the ordered options of a field.
type Source interface {
	Options(ctx context.Context, field dimension.Field) ([]dimension.Option, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, field dimension.Field) ([]dimension.Option, error)

func (f SourceFunc) Options(ctx context.Context, field dimension.Field) ([]dimension.Option, error) {
	return f(ctx, field)
}

// Catalog holds the options loaded for several fields.
type Catalog map[dimension.Field][]dimension.Option

// FieldError reports a load failure for one field.
type FieldError struct {
	Field dimension.Field
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("load options for %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// maxParallelLoads bounds concurrent requests against a source.
const maxParallelLoads = 4

// LoadAll fetches the options of every field concurrently. Fields that fail
// are missing from the catalog and reported in the joined error; the
// others are still returned.
func LoadAll(ctx context.Context, src Source, fields []dimension.Field) (Catalog, error) {
	var (
		mu      sync.Mutex
		catalog = make(Catalog, len(fields))
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for _, field := range fields {
		g.Go(func() error {
			opts, err := src.Options(ctx, field)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, &FieldError{Field: field, Err: err})
				return nil
			}
			catalog[field] = opts
			return nil
		})
	}
	_ = g.Wait()

	return catalog, errors.Join(errs...)
}
