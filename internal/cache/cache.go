package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// New selects the cache implementation for the deployment tier: in-process
// LRU for Community, Redis for Pro, and a two-phase LRU-over-Redis when the
// Pro config enables it. All three serve the same role: scan reports keyed
// by sensor fingerprint and the worker's alert-dedup counters.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache fronts Redis with a short-TTL local LRU. A fleet scan reads
// the same unchanged merchants over and over; the L1 absorbs those repeats
// while Redis keeps reports shared across API replicas.
type TwoPhaseCache struct {
	l1    *LRUCache
	l2    *RedisCache
	l1TTL time.Duration
}

// NewTwoPhaseCache builds the L1/L2 pair. The L1 TTL is deliberately short;
// it bounds how long a replica can serve a report another replica has
// already replaced.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	l2, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		l1:    NewLRUCache(cfg.LocalMaxSize),
		l2:    l2,
		l1TTL: l1TTL,
	}, nil
}

// Get reads L1 first and falls through to Redis, refilling L1 on a hit.
func (c *TwoPhaseCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	val, err := c.l1.Get(ctx, tenantID, key)
	if err != nil || val != nil {
		return val, err
	}

	val, err = c.l2.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.l1.Set(ctx, tenantID, key, val, c.l1TTL)
	}
	return val, nil
}

// Set writes both layers. L1 never outlives the requested TTL.
func (c *TwoPhaseCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, tenantID, key, value, min(ttl, c.l1TTL)); err != nil {
		return err
	}
	return c.l2.Set(ctx, tenantID, key, value, ttl)
}

// Delete removes the key from both layers.
func (c *TwoPhaseCache) Delete(ctx context.Context, tenantID string, key string) error {
	if err := c.l1.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	return c.l2.Delete(ctx, tenantID, key)
}

// GetReport retrieves a cached scan report by sensor fingerprint.
func (c *TwoPhaseCache) GetReport(ctx context.Context, tenantID string, fingerprint string) (*domain.MerchantReport, error) {
	report, err := c.l1.GetReport(ctx, tenantID, fingerprint)
	if err != nil || report != nil {
		return report, err
	}

	report, err = c.l2.GetReport(ctx, tenantID, fingerprint)
	if err != nil {
		return nil, err
	}
	if report != nil {
		_ = c.l1.SetReport(ctx, tenantID, fingerprint, report, c.l1TTL)
	}
	return report, nil
}

// SetReport caches a scan report in both layers.
func (c *TwoPhaseCache) SetReport(ctx context.Context, tenantID string, fingerprint string, report *domain.MerchantReport, ttl time.Duration) error {
	if err := c.l1.SetReport(ctx, tenantID, fingerprint, report, min(ttl, c.l1TTL)); err != nil {
		return err
	}
	return c.l2.SetReport(ctx, tenantID, fingerprint, report, ttl)
}

// IncrementCounter always goes to Redis. Alert dedup must count across
// every replica; a local counter would re-alert once per node.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	return c.l2.IncrementCounter(ctx, tenantID, key, window)
}

// Ping checks both layers.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.l1.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.l2.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both layers.
func (c *TwoPhaseCache) Close() error {
	_ = c.l1.Close()
	return c.l2.Close()
}

// Stats reports the local layer only; Redis keeps its own.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.l1.Stats()
}
