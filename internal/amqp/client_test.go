package amqp

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budgetfilter/internal/dimension"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "criteria", queueName: "criteria"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		atomic.StoreInt64(&client.lastFailure, time.Now().Add(-openTimeout-time.Second).UnixNano())
		if client.isCircuitOpen() {
			t.Error("circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be StateHalfOpen")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("state should be StateOpen")
		}
	})

	t.Run("success resets", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and reset failures")
		}
	})
}

func TestCircuitBreakerConcurrentAccess(t *testing.T) {
	client := &Client{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				client.recordFailure()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = client.isCircuitOpen()
			}
		}()
	}
	wg.Wait()

	if !client.isCircuitOpen() {
		t.Fatal("circuit should be open after repeated failures")
	}
}

func TestClient_PublishCriteriaGuards(t *testing.T) {
	client := &Client{exchangeName: "criteria", queueName: "criteria"}
	msg := NewCriteriaMessage("s1", "u1", dimension.Expense, " and fund_code = 'all'")

	t.Run("circuit open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		atomic.StoreInt64(&client.lastFailure, time.Now().UnixNano())

		err := client.PublishCriteria(context.Background(), msg)
		if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Fatalf("expected circuit breaker error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishCriteria(ctx, msg); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCriteriaMessage_JSON(t *testing.T) {
	msg := NewCriteriaMessage("s1", "u1", dimension.Revenue, " and fund_code in ('100')")
	if msg.ID.String() == "" || msg.Timestamp.IsZero() {
		t.Fatal("message should carry an id and a timestamp")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if strings.Contains(string(data), `"args"`) {
		t.Errorf("verbatim message should omit args: %s", data)
	}
	if !strings.Contains(string(data), `"context":"revenue"`) {
		t.Errorf("context not serialized by name: %s", data)
	}

	parsed, err := CriteriaMessageFromJSON(data)
	if err != nil {
		t.Fatalf("CriteriaMessageFromJSON() error = %v", err)
	}
	if parsed.ID != msg.ID || parsed.Criteria != msg.Criteria || parsed.Context != msg.Context {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}

	if _, err := CriteriaMessageFromJSON([]byte(`{"id": 12}`)); err == nil {
		t.Error("expected error for malformed id")
	}
}

type recordingPublisher struct {
	msgs []*CriteriaMessage
	err  error
}

func (p *recordingPublisher) PublishCriteria(_ context.Context, msg *CriteriaMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestSinkPublishesSessionMessages(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewSink(pub, "s1", "u1")

	if err := sink.Publish(context.Background(), dimension.Expense, " and dept_code = 'all'", nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.msgs))
	}
	got := pub.msgs[0]
	if got.SessionID != "s1" || got.UserID != "u1" || got.Context != dimension.Expense || got.Criteria != " and dept_code = 'all'" {
		t.Errorf("unexpected message %+v", got)
	}

	pub.err = errors.New("broker down")
	if err := sink.Publish(context.Background(), dimension.Revenue, "", nil); err == nil {
		t.Error("expected publisher error to propagate")
	}
}

func TestSinkCarriesBindArgs(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewSink(pub, "s1", "u1")

	args := []any{"all", "10", "20"}
	if err := sink.Publish(context.Background(), dimension.Revenue, " and parent_code = ? and fund_code in (?,?)", args); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data, err := pub.msgs[0].ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	parsed, err := CriteriaMessageFromJSON(data)
	if err != nil {
		t.Fatalf("CriteriaMessageFromJSON: %v", err)
	}
	if !reflect.DeepEqual(parsed.Args, args) {
		t.Fatalf("args = %v, want %v", parsed.Args, args)
	}
}
