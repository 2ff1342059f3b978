// Package cache is the Redis-backed result cache for the generic trip query.
// The dataset is immutable for the life of the process, so cached results
// never go stale; the TTL only bounds memory on the Redis side.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nyctaxi/trip-analytics/internal/router"
	"github.com/nyctaxi/trip-analytics/pkg/config"
	"github.com/nyctaxi/trip-analytics/pkg/metrics"
	pkgredis "github.com/nyctaxi/trip-analytics/pkg/redis"
)

const keyPrefix = "query:"

// ResultCache caches router results by canonical query key. A nil client is
// allowed; every lookup is then a miss and the cache degrades to a
// singleflight guard.
type ResultCache struct {
	client  *pkgredis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New builds a result cache. client and m may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		client:  client,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// GetOrCompute returns the cached result for q, or runs computeFn once per
// concurrent key and caches what it produced. The bool reports a cache hit.
func (c *ResultCache) GetOrCompute(ctx context.Context, q router.Query, computeFn func() (*router.Result, error)) (*router.Result, bool, error) {
	key := canonicalKey(q)
	if result, ok := c.get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*router.Result), false, nil
}

// Stats returns hit and miss counts since startup.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) get(ctx context.Context, key string) (*router.Result, bool) {
	if c.client == nil {
		c.miss()
		return nil, false
	}
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result router.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

func (c *ResultCache) set(ctx context.Context, key string, result *router.Result) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// canonicalKey normalises q so that queries differing only in argument order
// or text-term order share one cache entry.
func canonicalKey(q router.Query) string {
	parts := make([]string, 0, 16)
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+"="+value)
		}
	}

	terms := strings.Fields(strings.ToLower(q.Text))
	sort.Strings(terms)
	add("text", strings.Join(terms, ","))
	add("pickup_zone", strings.ToLower(q.PickupZone))
	add("dropoff_zone", strings.ToLower(q.DropoffZone))
	add("taxi_type", string(q.TaxiType))
	add("borough", strings.ToLower(q.Borough))
	addFloat(&parts, "min_fare", q.MinFare)
	addFloat(&parts, "max_fare", q.MaxFare)
	addFloat(&parts, "min_distance", q.MinDistance)
	addFloat(&parts, "max_distance", q.MaxDistance)
	if q.Day != nil {
		add("day", q.Day.String())
	}
	if q.Hour != nil {
		add("hour", strconv.Itoa(*q.Hour))
	}
	add("period", string(q.Period))
	if !q.From.IsZero() {
		add("from", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		add("to", q.To.Format(time.RFC3339))
	}
	if q.RankByRelevance {
		add("rank_by_relevance", "true")
	}
	parts = append(parts, "limit="+strconv.Itoa(q.Limit))

	sort.Strings(parts)
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func addFloat(parts *[]string, name string, v *float64) {
	if v != nil {
		*parts = append(*parts, fmt.Sprintf("%s=%.4f", name, *v))
	}
}
