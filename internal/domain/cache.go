package domain

import (
	"context"
	"time"
)

// Cache stores scan reports keyed by sensor fingerprint and the windowed
// counters behind alert dedup. A fingerprint key only ever maps to one
// report, so entries need no invalidation: a twin event changes the
// fingerprint and the old entry simply ages out. Every call is
// tenant-scoped. Implementations: LRU (Community), Redis, and a two-phase
// combination (Pro).
type Cache interface {
	// Get retrieves a value, or nil with no error on a miss.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetReport retrieves a cached scan report by sensor fingerprint.
	GetReport(ctx context.Context, tenantID string, fingerprint string) (*MerchantReport, error)

	// SetReport caches a scan report keyed by sensor fingerprint.
	SetReport(ctx context.Context, tenantID string, fingerprint string, report *MerchantReport, ttl time.Duration) error

	// IncrementCounter bumps a windowed counter and returns the new count.
	// The worker keys these "alert:<merchantID>" to suppress repeat alerts.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
