package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache memoises month fetches in Redis so repeated report runs
// do not hammer the rate service. It is strictly an optimisation: the
// resolver's in-process daily cache stays authoritative within a run,
// and a nil cache (or nil client) degrades to calling the loader
// directly.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache instantiates the cache helper.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("fx:month:%04d-%02d", year, int(month))
}

// FetchMonth loads cached month quotes or populates them via the loader.
func (c *SnapshotCache) FetchMonth(ctx context.Context, year int, month time.Month, loader func(context.Context) (map[string]map[string]float64, error)) (map[string]map[string]float64, error) {
	if loader == nil {
		return nil, errors.New("fx: snapshot loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := monthKey(year, month)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var quotes map[string]map[string]float64
		if err := json.Unmarshal(payload, &quotes); err == nil {
			return quotes, nil
		}
		// Corrupt entry: fall through and refetch.
	} else if err != redis.Nil {
		return nil, err
	}
	quotes, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(quotes)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return quotes, nil
}
