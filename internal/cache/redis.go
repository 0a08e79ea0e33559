package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/shrike/internal/domain"
)

// RedisCache is the Pro tier cache. Scan reports and dedup counters live in
// Redis so every API replica and worker sees the same state.
type RedisCache struct {
	client *redis.Client
}

// counterScript increments and arms the window TTL in one round trip, so
// two workers racing on the same alert key still count correctly.
var counterScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return current
`)

// NewRedisCache connects to Redis and verifies the connection before
// returning; a misconfigured address should fail at startup, not on the
// first scan.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get returns the value, or nil with no error when the key is absent.
func (c *RedisCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	val, err := c.client.Get(ctx, c.scopedKey(tenantID, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	return c.client.Set(ctx, c.scopedKey(tenantID, key), value, ttl).Err()
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	return c.client.Del(ctx, c.scopedKey(tenantID, key)).Err()
}

// GetReport retrieves a cached scan report by sensor fingerprint.
func (c *RedisCache) GetReport(ctx context.Context, tenantID string, fingerprint string) (*domain.MerchantReport, error) {
	data, err := c.Get(ctx, tenantID, "report:"+fingerprint)
	if err != nil || data == nil {
		return nil, err
	}

	var report domain.MerchantReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SetReport caches a scan report keyed by sensor fingerprint.
func (c *RedisCache) SetReport(ctx context.Context, tenantID string, fingerprint string, report *domain.MerchantReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, "report:"+fingerprint, data, ttl)
}

// IncrementCounter bumps a windowed counter atomically across replicas.
func (c *RedisCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}

	scoped := c.scopedKey(tenantID, "counter:"+key)
	return counterScript.Run(ctx, c.client, []string{scoped}, window.Milliseconds()).Int64()
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// scopedKey prefixes with the service name so Shrike can share a Redis
// database with other tenants' tooling.
func (c *RedisCache) scopedKey(tenantID, key string) string {
	return "shrike:" + tenantID + ":" + key
}
