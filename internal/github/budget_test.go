package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestBudget(t *testing.T) {
	fixedNow := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	newBudget := func() *RequestBudget {
		b := NewRequestBudget()
		b.now = func() time.Time { return fixedNow }
		return b
	}

	getRemaining := func(t *testing.T, b *RequestBudget) int {
		t.Helper()
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.remaining
	}

	setState := func(t *testing.T, b *RequestBudget, remaining int, reset time.Time) {
		t.Helper()
		b.mu.Lock()
		b.remaining = remaining
		b.reset = reset
		b.tracked = true
		b.mu.Unlock()
	}

	t.Run("untracked budget never blocks", func(t *testing.T) {
		b := newBudget()
		b.mu.Lock()
		b.remaining = 0
		b.mu.Unlock()

		if err := b.Acquire(context.Background(), 3); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
	})

	t.Run("UpdateFromResponse sets remaining and reset", func(t *testing.T) {
		b := newBudget()

		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("X-RateLimit-Remaining", "10")
		resp.Header.Set("X-RateLimit-Reset", "1700000000")
		b.UpdateFromResponse(resp)

		if rem := getRemaining(t, b); rem != 10 {
			t.Fatalf("Expected 10 remaining, got %d", rem)
		}
		if err := b.Acquire(context.Background(), 1); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if rem := getRemaining(t, b); rem != 9 {
			t.Fatalf("Expected 9 remaining after acquire, got %d", rem)
		}
	})

	t.Run("Retry-After causes cooldown blocking", func(t *testing.T) {
		b := newBudget()
		setState(t, b, 5000, fixedNow.Add(-1*time.Hour))

		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("Retry-After", "60")
		b.UpdateFromResponse(resp)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx, 1); err == nil {
			t.Fatalf("Expected context deadline exceeded during cooldown")
		}
	})

	t.Run("UpdateFromResponse ignores invalid headers", func(t *testing.T) {
		b := newBudget()
		setState(t, b, 7, time.Unix(123, 0))

		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("X-RateLimit-Remaining", "nope")
		resp.Header.Set("X-RateLimit-Reset", "not-a-time")
		b.UpdateFromResponse(resp)

		if rem := getRemaining(t, b); rem != 7 {
			t.Fatalf("Expected remaining to stay 7, got %d", rem)
		}
	})

	t.Run("Exhausted before reset blocks", func(t *testing.T) {
		b := newBudget()
		setState(t, b, 0, fixedNow.Add(1*time.Hour))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx, 1); err == nil {
			t.Fatalf("Expected context deadline exceeded")
		}
	})

	t.Run("After reset only allows one probe until update", func(t *testing.T) {
		b := newBudget()
		setState(t, b, 0, fixedNow.Add(-1*time.Second))

		if err := b.Acquire(context.Background(), 1); err != nil {
			t.Fatalf("Expected first probe to succeed, got %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx, 1); err == nil {
			t.Fatalf("Expected second acquire to block until context deadline")
		}
	})

	t.Run("UpdateFromResponse wakes waiters", func(t *testing.T) {
		b := newBudget()
		setState(t, b, 0, fixedNow.Add(1*time.Hour))

		errCh := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			errCh <- b.Acquire(ctx, 1)
		}()

		time.Sleep(10 * time.Millisecond)
		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("X-RateLimit-Remaining", "1")
		resp.Header.Set("X-RateLimit-Reset", "1700000000")
		b.UpdateFromResponse(resp)

		if err := <-errCh; err != nil {
			t.Fatalf("Expected Acquire to succeed after update, got %v", err)
		}
	})

	t.Run("Invalid inputs fail fast", func(t *testing.T) {
		b := newBudget()

		tests := []struct {
			name string
			ctx  context.Context
			n    int
		}{
			{name: "nil ctx", ctx: nil, n: 1},
			{name: "n=0", ctx: context.Background(), n: 0},
			{name: "n<0", ctx: context.Background(), n: -1},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := b.Acquire(tt.ctx, tt.n); err == nil {
					t.Fatalf("Expected error")
				}
			})
		}
	})
}

func TestNewClient_WithBudget_ObservesHeaders(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	budget := NewRequestBudget()
	c, err := NewClient(context.Background(), "test-token", WithBudget(budget), WithBaseURL(server.URL+"/api/v3/"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	req, err := c.Client.NewRequest("GET", "rate_limit", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if _, err := c.Client.Do(context.Background(), req, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}

	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}
	if got := budget.Remaining(); got != 42 {
		t.Fatalf("expected budget to track remaining=42, got %d", got)
	}
}
