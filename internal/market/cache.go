package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache holds the single shared coin-list payload with strict TTL
// expiry. Concurrent misses are coalesced through singleflight: one caller
// performs the upstream fetch, everyone who arrived during the flight gets
// its result. A failed fetch is returned to that round's waiters and leaves
// the previous entry untouched.
type SnapshotCache struct {
	mu        sync.RWMutex
	payload   json.RawMessage
	fetchedAt time.Time
	ttl       time.Duration
	group     singleflight.Group

	now func() time.Time
}

func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{ttl: ttl, now: time.Now}
}

// FetchFunc performs the upstream coin-list call.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Get returns the cached payload while it is fresh, otherwise refreshes it
// through a single coalesced upstream call.
func (c *SnapshotCache) Get(ctx context.Context, fetch FetchFunc) (json.RawMessage, error) {
	if payload, ok := c.fresh(); ok {
		logrus.Debug("coin list served from cache")
		return payload, nil
	}

	v, err, shared := c.group.Do("coinlist", func() (interface{}, error) {
		// A previous flight may have refreshed the entry while this
		// caller was waiting to start one.
		if payload, ok := c.fresh(); ok {
			return payload, nil
		}

		payload, err := fetch(ctx)
		if err != nil {
			logrus.WithError(err).Error("coin list refresh failed")
			return nil, err
		}

		c.mu.Lock()
		c.payload = payload
		c.fetchedAt = c.now()
		c.mu.Unlock()

		logrus.Info("coin list cache refreshed")
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logrus.Debug("coin list refresh coalesced")
	}
	return v.(json.RawMessage), nil
}

func (c *SnapshotCache) fresh() (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.payload == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.payload, true
}
