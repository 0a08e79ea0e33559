package scanner

import (
	"context"
	"sort"
	"testing"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/generate"
	"github.com/opensource-finance/shrike/internal/rules"
)

func TestScanBatchEmptyFleet(t *testing.T) {
	sc := newTestScanner(t)

	result, err := sc.ScanBatch(context.Background(), nil, BatchOptions{})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if result.TotalMerchants != 0 || result.HealthyCount != 0 || result.WithFailures != 0 {
		t.Errorf("expected zeroed aggregates, got %+v", result)
	}
	if result.TopFailureCodes == nil || len(result.TopFailureCodes) != 0 {
		t.Errorf("expected empty (non-nil) top codes, got %v", result.TopFailureCodes)
	}
}

func TestScanBatchFixtureFleet(t *testing.T) {
	sc := newTestScanner(t)

	fleet := generate.Fixtures("tenant-001")
	result, err := sc.ScanBatch(context.Background(), fleet, BatchOptions{})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if result.TotalMerchants != 10 {
		t.Errorf("expected 10 merchants, got %d", result.TotalMerchants)
	}
	// Only the healthy baseline passes every action; three fixtures carry a
	// critical failure (suspended, expired start key, frozen).
	if result.HealthyCount != 1 {
		t.Errorf("expected 1 healthy, got %d", result.HealthyCount)
	}
	if result.WithFailures != 9 {
		t.Errorf("expected 9 with failures, got %d", result.WithFailures)
	}
	if result.WithCritical != 3 {
		t.Errorf("expected 3 with critical, got %d", result.WithCritical)
	}
	if result.HealthyCount+result.WithFailures != result.TotalMerchants {
		t.Errorf("healthy + failing != total: %d + %d != %d",
			result.HealthyCount, result.WithFailures, result.TotalMerchants)
	}

	if len(result.Reports) != 10 {
		t.Fatalf("expected 10 reports, got %d", len(result.Reports))
	}
	if !sort.SliceIsSorted(result.Reports, func(i, j int) bool {
		return result.Reports[i].Merchant.ID < result.Reports[j].Merchant.ID
	}) {
		t.Error("reports not sorted by merchant ID")
	}
}

func TestScanBatchOrderInsensitive(t *testing.T) {
	sc := newTestScanner(t)

	fleet := generate.Fixtures("tenant-001")
	reversed := make([]*domain.Merchant, len(fleet))
	for i, m := range fleet {
		reversed[len(fleet)-1-i] = m
	}

	forward, err := sc.ScanBatch(context.Background(), fleet, BatchOptions{MaxWorkers: 2})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	backward, err := sc.ScanBatch(context.Background(), reversed, BatchOptions{MaxWorkers: 3})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if forward.CallsAtRisk != backward.CallsAtRisk {
		t.Errorf("calls at risk differ by input order: %d vs %d", forward.CallsAtRisk, backward.CallsAtRisk)
	}
	if forward.HealthyCount != backward.HealthyCount || forward.WithCritical != backward.WithCritical {
		t.Errorf("aggregates differ by input order: %+v vs %+v", forward, backward)
	}
	for i := range forward.Reports {
		if forward.Reports[i].Merchant.ID != backward.Reports[i].Merchant.ID {
			t.Errorf("report %d: order differs: %s vs %s",
				i, forward.Reports[i].Merchant.ID, backward.Reports[i].Merchant.ID)
		}
	}
	if len(forward.TopFailureCodes) != len(backward.TopFailureCodes) {
		t.Fatalf("top code lengths differ: %d vs %d",
			len(forward.TopFailureCodes), len(backward.TopFailureCodes))
	}
	for i := range forward.TopFailureCodes {
		if forward.TopFailureCodes[i] != backward.TopFailureCodes[i] {
			t.Errorf("top code %d differs: %+v vs %+v",
				i, forward.TopFailureCodes[i], backward.TopFailureCodes[i])
		}
	}
}

func TestScanBatchCountsMerchantOncePerCode(t *testing.T) {
	sc := newTestScanner(t)

	// One pin-locked merchant fails seven actions, all with the same code;
	// the ranking counts the merchant once.
	m := healthyMerchant("m-pin")
	m.PinAttempts = domain.MaxPinAttempts
	m.PinLocked = true

	result, err := sc.ScanBatch(context.Background(), []*domain.Merchant{m}, BatchOptions{})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(result.TopFailureCodes) != 1 {
		t.Fatalf("expected 1 code, got %d", len(result.TopFailureCodes))
	}
	top := result.TopFailureCodes[0]
	if top.Code != rules.CodePinLocked || top.Count != 1 {
		t.Errorf("expected %s count 1, got %s count %d", rules.CodePinLocked, top.Code, top.Count)
	}
	if top.PctOfFleet != 100 {
		t.Errorf("expected 100%% of fleet, got %.1f", top.PctOfFleet)
	}
}

func TestScanBatchTopCodesTieBreakAndLimit(t *testing.T) {
	sc := newTestScanner(t)

	// Two merchants, each with one distinct failure code at equal counts;
	// ties break alphabetically.
	lowFloat := healthyMerchant("m-a")
	lowFloat.Balance = 900

	noNotify := healthyMerchant("m-b")
	noNotify.NotificationsEnabled = false

	result, err := sc.ScanBatch(context.Background(),
		[]*domain.Merchant{noNotify, lowFloat}, BatchOptions{})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(result.TopFailureCodes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(result.TopFailureCodes))
	}
	if result.TopFailureCodes[0].Code != rules.CodeLowFloat {
		t.Errorf("expected %s first on tie, got %s", rules.CodeLowFloat, result.TopFailureCodes[0].Code)
	}
	if result.TopFailureCodes[1].Code != rules.CodeNotificationsOff {
		t.Errorf("expected %s second, got %s", rules.CodeNotificationsOff, result.TopFailureCodes[1].Code)
	}

	// TopCodes truncates the ranking.
	result, err = sc.ScanBatch(context.Background(),
		[]*domain.Merchant{noNotify, lowFloat}, BatchOptions{TopCodes: 1})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(result.TopFailureCodes) != 1 {
		t.Errorf("expected truncation to 1, got %d", len(result.TopFailureCodes))
	}
}

func TestScanBatchCanceledContext(t *testing.T) {
	sc := newTestScanner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fleet := generate.Fixtures("tenant-001")
	if _, err := sc.ScanBatch(ctx, fleet, BatchOptions{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestScanBatchPropagatesMerchantError(t *testing.T) {
	sc := newTestScanner(t)

	good := healthyMerchant("m-good")
	bad := healthyMerchant("m-bad")
	bad.AccountStatus = "limbo"

	if _, err := sc.ScanBatch(context.Background(),
		[]*domain.Merchant{good, bad}, BatchOptions{}); err == nil {
		t.Error("expected error for invalid merchant in fleet")
	}
}
