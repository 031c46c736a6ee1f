package market

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewSnapshotCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	var calls int32
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return json.RawMessage(`["p1"]`), nil
	}

	payload, err := c.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	if string(payload) != `["p1"]` {
		t.Fatalf("unexpected payload %s", payload)
	}

	now = now.Add(60 * time.Second)
	payload, err = c.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if string(payload) != `["p1"]` {
		t.Fatalf("expected cached payload, got %s", payload)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", n)
	}
}

func TestSnapshotCacheExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewSnapshotCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	var calls int32
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return json.RawMessage(`["p1"]`), nil
		}
		return json.RawMessage(`["p2"]`), nil
	}

	if _, err := c.Get(context.Background(), fetch); err != nil {
		t.Fatalf("first get failed: %v", err)
	}

	now = now.Add(301 * time.Second)
	payload, err := c.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("get after expiry failed: %v", err)
	}
	if string(payload) != `["p2"]` {
		t.Fatalf("expected refreshed payload, got %s", payload)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 upstream fetches, got %d", n)
	}
}

func TestSnapshotCacheCoalescesConcurrentMisses(t *testing.T) {
	c := NewSnapshotCache(5 * time.Minute)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return json.RawMessage(`["shared"]`), nil
	}

	const n = 10
	results := make([]json.RawMessage, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), fetch)
		}(i)
	}

	// Let the leader enter the fetch, give the followers time to queue
	// behind the in-flight call, then release it.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 upstream fetch, got %d", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d got error: %v", i, errs[i])
		}
		if string(results[i]) != `["shared"]` {
			t.Fatalf("caller %d got payload %s", i, results[i])
		}
	}
}

func TestSnapshotCacheFetchErrorKeepsPreviousEntry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewSnapshotCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	fetchOK := func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`["p1"]`), nil
	}
	fetchFail := func(ctx context.Context) (json.RawMessage, error) {
		return nil, errors.New("upstream down")
	}

	if _, err := c.Get(context.Background(), fetchOK); err != nil {
		t.Fatalf("initial fetch failed: %v", err)
	}
	fetchedAt := c.fetchedAt

	now = now.Add(301 * time.Second)
	if _, err := c.Get(context.Background(), fetchFail); err == nil {
		t.Fatal("expected error from failed refresh")
	}

	if string(c.payload) != `["p1"]` {
		t.Errorf("failed refresh overwrote the cached payload: %s", c.payload)
	}
	if !c.fetchedAt.Equal(fetchedAt) {
		t.Error("failed refresh touched the fetch timestamp")
	}

	fetchOK2 := func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`["p2"]`), nil
	}
	payload, err := c.Get(context.Background(), fetchOK2)
	if err != nil {
		t.Fatalf("recovery fetch failed: %v", err)
	}
	if string(payload) != `["p2"]` {
		t.Fatalf("expected refreshed payload after recovery, got %s", payload)
	}
}
