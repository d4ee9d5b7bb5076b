package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/options"
)

type memStore struct {
	mu      sync.Mutex
	data    map[dimension.Field][]dimension.Option
	failFor dimension.Field
	writes  int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[dimension.Field][]dimension.Option)}
}

func (s *memStore) ReplaceOptions(_ context.Context, field dimension.Field, opts []dimension.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if field == s.failFor {
		return errors.New("disk full")
	}
	s.writes++
	s.data[field] = opts
	return nil
}

func (s *memStore) Count(context.Context) (map[dimension.Field]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[dimension.Field]int, len(s.data))
	for f, opts := range s.data {
		out[f] = len(opts)
	}
	return out, nil
}

func upstream() options.Source {
	return options.SourceFunc(func(_ context.Context, f dimension.Field) ([]dimension.Option, error) {
		switch f {
		case dimension.Dept:
			return []dimension.Option{{Code: "10", Label: "Finance"}}, nil
		case dimension.Fund:
			return []dimension.Option{{Code: "100"}, {Code: "200"}}, nil
		case dimension.Node:
			return nil, nil
		default:
			return nil, errors.New("upstream unavailable")
		}
	})
}

func TestSyncAllPartialFailure(t *testing.T) {
	store := newMemStore()
	store.data[dimension.Node] = []dimension.Option{{Code: "keep"}}
	store.data[dimension.Account] = []dimension.Option{{Code: "4000"}}

	w := NewOptionSyncWorker(upstream(), store, dimension.Default().Fields(), nil)
	report, err := w.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected joined error for failing fields")
	}

	if report.Synced[dimension.Dept] != 1 || report.Synced[dimension.Fund] != 2 {
		t.Fatalf("synced = %v", report.Synced)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != dimension.Node {
		t.Fatalf("skipped = %v", report.Skipped)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("failed = %v", report.Failed)
	}
	if got := store.data[dimension.Node]; len(got) != 1 || got[0].Code != "keep" {
		t.Fatalf("empty upstream wiped node options: %v", got)
	}
	if got := store.data[dimension.Account]; len(got) != 1 {
		t.Fatalf("failed upstream wiped account options: %v", got)
	}
}

func TestSyncAllStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failFor = dimension.Fund

	w := NewOptionSyncWorker(upstream(), store, []dimension.Field{dimension.Dept, dimension.Fund}, nil)
	report, err := w.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected store error")
	}
	if report.Synced[dimension.Dept] != 1 || len(report.Failed) != 1 || report.Failed[0] != dimension.Fund {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSyncIfEmpty(t *testing.T) {
	store := newMemStore()
	w := NewOptionSyncWorker(upstream(), store, []dimension.Field{dimension.Dept}, nil)

	ran, err := w.SyncIfEmpty(context.Background())
	if err != nil || !ran {
		t.Fatalf("first SyncIfEmpty = %v, %v", ran, err)
	}
	ran, err = w.SyncIfEmpty(context.Background())
	if err != nil || ran {
		t.Fatalf("second SyncIfEmpty = %v, %v", ran, err)
	}
	if store.writes != 1 {
		t.Fatalf("writes = %d, want 1", store.writes)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newMemStore()
	w := NewOptionSyncWorker(upstream(), store, []dimension.Field{dimension.Dept}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for {
		store.mu.Lock()
		writes := store.writes
		store.mu.Unlock()
		if writes > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial sync did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
