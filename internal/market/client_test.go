package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coindash/coindash-server/internal/apperrors"
)

func TestClientRetriesOnce(t *testing.T) {
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"id":"bitcoin"}]`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, 2*time.Second)
	payload, err := c.ListMarkets(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if string(payload) != `[{"id":"bitcoin"}]` {
		t.Fatalf("unexpected payload: %s", payload)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", got)
	}
}

func TestClientUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, 2*time.Second)
	if _, err := c.ListMarkets(context.Background()); !errors.Is(err, apperrors.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, 50*time.Millisecond)
	_, err := c.ListMarkets(context.Background())
	if !errors.Is(err, apperrors.ErrUpstreamTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCoinDetailMemoized(t *testing.T) {
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"id":"bitcoin","name":"Bitcoin"}`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, 2*time.Second)
	for i := 0; i < 3; i++ {
		if _, err := c.CoinDetail(context.Background(), "bitcoin"); err != nil {
			t.Fatalf("coin detail failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", got)
	}

	name, err := c.CoinName(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("coin name failed: %v", err)
	}
	if name != "Bitcoin" {
		t.Fatalf("expected Bitcoin, got %q", name)
	}
}
