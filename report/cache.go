package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/warp/payroll-engine/payroll"
)

// DefaultCacheKey is where RedisCache stores the report.
const DefaultCacheKey = "payroll:report"

// Cache holds the most recently generated report.
//
// Every Invalidate advances a version. A report computed from rows read
// after Version returned v may be stored with Put(v); Put drops it if the
// version has moved on, so a report built before an ingestion never
// replaces the invalidation that followed it.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context) (reports []payroll.PayrollReport, ok bool, err error)
	Version(ctx context.Context) (int64, error)
	Put(ctx context.Context, version int64, reports []payroll.PayrollReport) error
	Invalidate(ctx context.Context) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context) ([]payroll.PayrollReport, bool, error) { return nil, false, nil }
func (NopCache) Version(context.Context) (int64, error)                     { return 0, nil }
func (NopCache) Put(context.Context, int64, []payroll.PayrollReport) error   { return nil }
func (NopCache) Invalidate(context.Context) error                            { return nil }

// RedisCache stores the report as JSON under a single key, next to a
// version counter.
type RedisCache struct {
	client     *redis.Client
	key        string
	versionKey string
	ttl        time.Duration
}

// NewRedisCache returns a cache on client. ttl <= 0 means no expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{
		client:     client,
		key:        DefaultCacheKey,
		versionKey: DefaultCacheKey + ":version",
		ttl:        ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context) ([]payroll.PayrollReport, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read report cache: %w", err)
	}

	var reports []payroll.PayrollReport
	if err := json.Unmarshal(val, &reports); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return reports, true, nil
}

func (c *RedisCache) Version(ctx context.Context) (int64, error) {
	return readVersion(ctx, c.client, c.versionKey)
}

// Put writes reports only while the version still equals version. The check
// and the write run in one WATCH/MULTI transaction.
func (c *RedisCache) Put(ctx context.Context, version int64, reports []payroll.PayrollReport) error {
	data, err := json.Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, c.versionKey)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, data, c.ttl)
			return nil
		})
		return err
	}, c.versionKey)

	// Invalidated while writing: the report is already stale.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	return err
}

// stringGetter is satisfied by *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, cmd stringGetter, key string) (int64, error) {
	v, err := cmd.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read report cache version: %w", err)
	}
	return v, nil
}
