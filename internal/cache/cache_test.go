package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

func TestLRUGetSetDelete(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "tenant-001", "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := c.Get(ctx, "tenant-001", "key1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "value1" {
		t.Errorf("expected value1, got %s", got)
	}

	if err := c.Delete(ctx, "tenant-001", "key1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err = c.Get(ctx, "tenant-001", "key1")
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %s", got)
	}
}

func TestLRUMissReturnsNilNil(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()

	got, err := c.Get(context.Background(), "tenant-001", "missing")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil on miss, got %v, %v", got, err)
	}
}

func TestLRUTenantIsolation(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "tenant-001", "shared", []byte("one"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := c.Set(ctx, "tenant-002", "shared", []byte("two"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, _ := c.Get(ctx, "tenant-001", "shared")
	if string(got) != "one" {
		t.Errorf("tenant-001: expected one, got %s", got)
	}
	got, _ = c.Get(ctx, "tenant-002", "shared")
	if string(got) != "two" {
		t.Errorf("tenant-002: expected two, got %s", got)
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "tenant-001", "ephemeral", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	got, err := c.Get(ctx, "tenant-001", "ephemeral")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected expiry, got %s", got)
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key%d", i)
		if err := c.Set(ctx, "tenant-001", key, []byte(key), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	// Touch key0 so key1 becomes the eviction candidate.
	if _, err := c.Get(ctx, "tenant-001", "key0"); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if err := c.Set(ctx, "tenant-001", "key3", []byte("key3"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if got, _ := c.Get(ctx, "tenant-001", "key1"); got != nil {
		t.Error("expected key1 evicted")
	}
	if got, _ := c.Get(ctx, "tenant-001", "key0"); got == nil {
		t.Error("expected key0 retained after touch")
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("expected 3/3, got %d/%d", size, capacity)
	}
}

func TestReportRoundTripByFingerprint(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	m := &domain.Merchant{
		ID:                   "m-cache",
		TenantID:             "tenant-001",
		AccountStatus:        domain.AccountActive,
		KYCStatus:            domain.KYCVerified,
		SIMStatus:            domain.SIMActive,
		StartKeyStatus:       domain.StartKeyValid,
		Balance:              900,
		NotificationsEnabled: true,
	}
	report := &domain.MerchantReport{
		Merchant:  m,
		ScannedAt: time.Now().UTC(),
		Summary: domain.Summary{
			MerchantID:     m.ID,
			RulesEvaluated: 12,
			Passing:        11,
			Failing:        1,
			CallsAtRisk:    16220,
		},
	}

	fp := m.SensorFingerprint()
	if err := c.SetReport(ctx, "tenant-001", fp, report, time.Minute); err != nil {
		t.Fatalf("set report failed: %v", err)
	}

	got, err := c.GetReport(ctx, "tenant-001", fp)
	if err != nil {
		t.Fatalf("get report failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached report")
	}
	if got.Summary.CallsAtRisk != 16220 || got.Merchant.ID != "m-cache" {
		t.Errorf("report mangled: %+v", got.Summary)
	}

	// A different fingerprint must miss.
	miss, err := c.GetReport(ctx, "tenant-001", "deadbeef")
	if err != nil || miss != nil {
		t.Errorf("expected miss, got %v, %v", miss, err)
	}
}

func TestIncrementCounterWindow(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.IncrementCounter(ctx, "tenant-001", "alert:m-1", time.Minute)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if n != want {
			t.Errorf("expected %d, got %d", want, n)
		}
	}

	// Separate tenants keep separate counters.
	n, err := c.IncrementCounter(ctx, "tenant-002", "alert:m-1", time.Minute)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected fresh counter for tenant-002, got %d", n)
	}
}

func TestIncrementCounterWindowResets(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.IncrementCounter(ctx, "tenant-001", "burst", 10*time.Millisecond); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	n, err := c.IncrementCounter(ctx, "tenant-001", "burst", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected window reset to 1, got %d", n)
	}
}

func TestNewFactorySelectsMemory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected *LRUCache, got %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown cache type")
	}
}
