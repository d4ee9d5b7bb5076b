package panel

import (
	"context"
	"sync"

	"budgetfilter/internal/dimension"
)

// Sink receives the freshly compiled criteria of one context. args holds
// the bind arguments when the fragment carries placeholders and is nil for
// verbatim fragments.
type Sink interface {
	Publish(ctx context.Context, qctx dimension.Context, criteria string, args []any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, qctx dimension.Context, criteria string, args []any) error

func (f SinkFunc) Publish(ctx context.Context, qctx dimension.Context, criteria string, args []any) error {
	return f(ctx, qctx, criteria, args)
}

// LatestSink keeps the last published value.
type LatestSink struct {
	mu        sync.RWMutex
	value     string
	args      []any
	published int
}

func (s *LatestSink) Publish(_ context.Context, _ dimension.Context, criteria string, args []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = criteria
	s.args = append([]any(nil), args...)
	s.published++
	return nil
}

// Value returns the last published criteria.
func (s *LatestSink) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Args returns a copy of the last published bind arguments.
func (s *LatestSink) Args() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]any(nil), s.args...)
}

// Published returns how many times Publish was called.
func (s *LatestSink) Published() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Fanout publishes to every sink in order and returns the first error.
// Later sinks still run when an earlier one fails.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, qctx dimension.Context, criteria string, args []any) error {
	var first error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, qctx, criteria, args); err != nil && first == nil {
			first = err
		}
	}
	return first
}
