// Package cache provides the scan-report caches for Shrike. Reports are
// keyed by the merchant's sensor fingerprint, so a cached entry stays valid
// for exactly as long as no sensor moves; any twin event changes the
// fingerprint and naturally misses the cache.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// LRUCache is an in-process LRU with per-entry TTLs. It is the Community
// tier cache and the L1 of the two-phase cache. Counter entries live in a
// side map outside the LRU so alert-dedup windows cannot be evicted by
// report churn.
type LRUCache struct {
	mu       sync.RWMutex
	maxSize  int
	items    map[string]*list.Element
	recency  *list.List
	counters map[string]*windowCounter
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

type windowCounter struct {
	count     int64
	expiresAt time.Time
}

// NewLRUCache creates an LRU holding at most maxSize entries.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		maxSize:  maxSize,
		items:    make(map[string]*list.Element),
		recency:  list.New(),
		counters: make(map[string]*windowCounter),
	}
}

// Get returns the cached value, or nil with no error on a miss. Expired
// entries are dropped lazily on access.
func (c *LRUCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[c.scopedKey(tenantID, key)]
	if !ok {
		return nil, nil
	}

	entry := elem.Value.(*lruEntry)
	if time.Now().After(entry.expiresAt) {
		c.drop(elem)
		return nil, nil
	}

	c.recency.MoveToFront(elem)
	return entry.value, nil
}

// Set stores a value under the tenant's namespace, evicting the least
// recently used entries if the cache is full.
func (c *LRUCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	scoped := c.scopedKey(tenantID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[scoped]; ok {
		c.recency.MoveToFront(elem)
		entry := elem.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(ttl)
		return nil
	}

	c.items[scoped] = c.recency.PushFront(&lruEntry{
		key:       scoped,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})

	for c.recency.Len() > c.maxSize {
		if oldest := c.recency.Back(); oldest != nil {
			c.drop(oldest)
		}
	}

	return nil
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *LRUCache) Delete(ctx context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[c.scopedKey(tenantID, key)]; ok {
		c.drop(elem)
	}
	return nil
}

// GetReport retrieves a cached scan report by sensor fingerprint.
func (c *LRUCache) GetReport(ctx context.Context, tenantID string, fingerprint string) (*domain.MerchantReport, error) {
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
func (c *LRUCache) SetReport(ctx context.Context, tenantID string, fingerprint string, report *domain.MerchantReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, "report:"+fingerprint, data, ttl)
}

// IncrementCounter bumps a windowed counter and returns the new count. An
// expired window restarts at 1. The worker uses this for alert dedup.
func (c *LRUCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}

	scoped := c.scopedKey(tenantID, "counter:"+key)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry, ok := c.counters[scoped]
	if !ok || now.After(entry.expiresAt) {
		c.counters[scoped] = &windowCounter{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}

	entry.count++
	return entry.count, nil
}

// Ping checks cache health.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.recency = list.New()
	c.counters = make(map[string]*windowCounter)
	return nil
}

// Stats returns current size and capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recency.Len(), c.maxSize
}

func (c *LRUCache) scopedKey(tenantID, key string) string {
	return tenantID + ":" + key
}

// drop removes an element from both the recency list and the index. Caller
// must hold the write lock.
func (c *LRUCache) drop(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry).key)
}
