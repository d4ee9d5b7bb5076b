package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware()
	var got string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestID(r)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == "" {
		t.Fatal("request id not set")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got == "not-a-uuid" {
		t.Fatal("invalid inbound id should be replaced")
	}

	const inbound = "6f1c1a4e-1b2d-4c3e-9f00-0a1b2c3d4e5f"
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, inbound)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != inbound {
		t.Fatalf("request id = %q, want inbound %q", got, inbound)
	}

	if m.GetMetrics().TotalRequests != 3 || m.GetMetrics().InFlight != 0 {
		t.Fatalf("metrics = %+v", m.GetMetrics())
	}
}
