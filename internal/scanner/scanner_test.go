package scanner

import (
	"testing"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/rules"
)

func newTestScanner(t *testing.T) *Scanner {
	t.Helper()
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return New(engine)
}

func healthyMerchant(id string) *domain.Merchant {
	return &domain.Merchant{
		ID:                   id,
		TenantID:             "tenant-001",
		Name:                 "Scan Test Merchant",
		AccountStatus:        domain.AccountActive,
		KYCStatus:            domain.KYCVerified,
		KYCAgeDays:           120,
		SIMStatus:            domain.SIMActive,
		StartKeyStatus:       domain.StartKeyValid,
		Balance:              25000,
		NotificationsEnabled: true,
	}
}

func TestReportHealthyMerchant(t *testing.T) {
	sc := newTestScanner(t)

	report, err := sc.Report(healthyMerchant("m-healthy"))
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if report.Summary.RulesEvaluated != rules.CatalogSize {
		t.Errorf("expected %d rules evaluated, got %d", rules.CatalogSize, report.Summary.RulesEvaluated)
	}
	if report.Summary.Passing != rules.CatalogSize || report.Summary.Failing != 0 {
		t.Errorf("expected all passing, got %d/%d", report.Summary.Passing, report.Summary.Failing)
	}
	if report.Summary.CallsAtRisk != 0 {
		t.Errorf("expected 0 calls at risk, got %d", report.Summary.CallsAtRisk)
	}
	if len(report.Failures) != 0 {
		t.Errorf("expected no failures, got %d", len(report.Failures))
	}
	if report.HasCritical() {
		t.Error("healthy report must not be critical")
	}
	if report.ScannedAt.IsZero() {
		t.Error("expected scan timestamp")
	}
}

func TestReportFrozenCompoundFailure(t *testing.T) {
	sc := newTestScanner(t)

	m := healthyMerchant("m-frozen")
	m.AccountStatus = domain.AccountFrozen
	m.KYCStatus = domain.KYCExpired
	m.KYCAgeDays = 500
	m.PinAttempts = domain.MaxPinAttempts
	m.PinLocked = true
	m.SettlementOnHold = true

	report, err := sc.Report(m)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	// A freeze blocks every action in the catalog.
	if report.Summary.Failing != rules.CatalogSize {
		t.Errorf("expected %d failures, got %d", rules.CatalogSize, report.Summary.Failing)
	}
	// The sum of every action's historical demand.
	if report.Summary.CallsAtRisk != 85960 {
		t.Errorf("expected 85960 calls at risk, got %d", report.Summary.CallsAtRisk)
	}
	if !report.HasCritical() {
		t.Error("expected a critical failure")
	}

	for _, f := range report.Failures {
		if f.Code != rules.CodeAccountFrozen {
			t.Errorf("%s: expected %s, got %s", f.ActionKey, rules.CodeAccountFrozen, f.Code)
		}
	}
}

func TestFailureOrdering(t *testing.T) {
	sc := newTestScanner(t)

	// PIN locked on a low-float till with notifications off: seven actions
	// fail on PIN_LOCKED at high severity, everything else passes because
	// the lock matches before the softer conditions.
	m := healthyMerchant("m-ordered")
	m.PinAttempts = domain.MaxPinAttempts
	m.PinLocked = true
	m.Balance = 1000
	m.NotificationsEnabled = false

	failures, err := sc.ScanAll(m)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(failures) != 7 {
		t.Fatalf("expected 7 failures, got %d", len(failures))
	}

	wantTotals := []int{18540, 16220, 9875, 8410, 6120, 3615, 2145}
	for i, f := range failures {
		if f.Code != rules.CodePinLocked {
			t.Errorf("failure %d: expected %s, got %s", i, rules.CodePinLocked, f.Code)
		}
		if f.DemandTotal != wantTotals[i] {
			t.Errorf("failure %d: expected demand total %d, got %d", i, wantTotals[i], f.DemandTotal)
		}
	}
}

func TestSeverityOrdersBeforeDemand(t *testing.T) {
	sc := newTestScanner(t)

	// Suspended with hold: criticals must sort ahead of any higher-demand
	// non-critical failure.
	m := healthyMerchant("m-suspended")
	m.AccountStatus = domain.AccountSuspended
	m.DormantDays = 75
	m.SettlementOnHold = true

	failures, err := sc.ScanAll(m)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(failures) == 0 {
		t.Fatal("expected failures")
	}

	lastRank := domain.SeverityRank(failures[0].Severity)
	for i, f := range failures[1:] {
		rank := domain.SeverityRank(f.Severity)
		if rank > lastRank {
			t.Errorf("failure %d out of severity order: %s after %s", i+1, f.Severity, failures[i].Severity)
		}
		lastRank = rank
	}

	if failures[0].Severity != domain.SeverityCritical {
		t.Errorf("expected critical first, got %s", failures[0].Severity)
	}
}

func TestReportPropagatesInvalidState(t *testing.T) {
	sc := newTestScanner(t)

	m := healthyMerchant("m-corrupt")
	m.Balance = -100

	if _, err := sc.Report(m); err == nil {
		t.Error("expected error for invalid snapshot")
	}
}

func TestSummarizeMatchesReport(t *testing.T) {
	sc := newTestScanner(t)

	m := healthyMerchant("m-summary")
	m.Balance = 900

	summary, err := sc.Summarize(m)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	// Low float warns on customer_withdrawal only.
	if summary.Failing != 1 {
		t.Errorf("expected 1 failure, got %d", summary.Failing)
	}
	if summary.CallsAtRisk != 16220 {
		t.Errorf("expected 16220 calls at risk, got %d", summary.CallsAtRisk)
	}
	if summary.BySeverity[domain.SeverityMedium] != 1 {
		t.Errorf("expected 1 medium, got %d", summary.BySeverity[domain.SeverityMedium])
	}
}
