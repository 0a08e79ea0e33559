package generate

import (
	"testing"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/risk"
)

func TestGeneratorIsSeedDeterministic(t *testing.T) {
	a := New("tenant-001", 42).GenerateBatch(50)
	b := New("tenant-001", 42).GenerateBatch(50)

	// IDs are fresh UUIDs, so equality is judged on the sensor fingerprint.
	for i := range a {
		if a[i].SensorFingerprint() != b[i].SensorFingerprint() {
			t.Errorf("merchant %d: same seed produced different sensors", i)
		}
		if a[i].Name != b[i].Name || a[i].Region != b[i].Region {
			t.Errorf("merchant %d: same seed produced different profile", i)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New("tenant-001", 1).GenerateBatch(20)
	b := New("tenant-001", 2).GenerateBatch(20)

	same := 0
	for i := range a {
		if a[i].SensorFingerprint() == b[i].SensorFingerprint() {
			same++
		}
	}
	// Healthy baselines can collide on sensors; a full match would mean the
	// seed is being ignored.
	if same == len(a) {
		t.Error("different seeds produced identical fleets")
	}
}

func TestGeneratedMerchantsAreValid(t *testing.T) {
	fleet := New("tenant-001", 7).GenerateBatch(200)

	if len(fleet) != 200 {
		t.Fatalf("expected 200 merchants, got %d", len(fleet))
	}

	for i, m := range fleet {
		if err := m.Validate(); err != nil {
			t.Errorf("merchant %d invalid: %v", i, err)
		}
		if m.ID == "" || m.TenantID != "tenant-001" {
			t.Errorf("merchant %d: bad identity %q/%q", i, m.ID, m.TenantID)
		}
	}
}

func TestGeneratorMixesHealthyAndAfflicted(t *testing.T) {
	fleet := New("tenant-001", 99).GenerateBatch(300)

	healthy := 0
	for _, m := range fleet {
		if risk.RiskTier(m) == domain.TierHealthy {
			healthy++
		}
	}

	// ~60% healthy by construction; a degenerate all-or-nothing split means
	// the affliction layer is broken.
	if healthy == 0 || healthy == len(fleet) {
		t.Errorf("degenerate fleet mix: %d/%d healthy", healthy, len(fleet))
	}
}

func TestOverridesApplyLast(t *testing.T) {
	g := New("tenant-001", 5)

	m := g.GenerateMerchant(func(m *domain.Merchant) {
		m.AccountStatus = domain.AccountFrozen
		m.Region = "Garissa"
	})

	if m.AccountStatus != domain.AccountFrozen {
		t.Errorf("override not applied: %s", m.AccountStatus)
	}
	if m.Region != "Garissa" {
		t.Errorf("override not applied: %s", m.Region)
	}
}

func TestFixturesAreStableAndValid(t *testing.T) {
	fleet := Fixtures("tenant-001")

	if len(fleet) != 10 {
		t.Fatalf("expected 10 fixtures, got %d", len(fleet))
	}

	wantIDs := []string{
		"fx-healthy", "fx-pin-locked", "fx-suspended", "fx-kyc-expired",
		"fx-sim-swapped", "fx-low-float", "fx-start-key", "fx-no-notify",
		"fx-operator-ghost", "fx-frozen",
	}
	for i, m := range fleet {
		if m.ID != wantIDs[i] {
			t.Errorf("fixture %d: expected ID %s, got %s", i, wantIDs[i], m.ID)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("fixture %s invalid: %v", m.ID, err)
		}
		if m.TenantID != "tenant-001" {
			t.Errorf("fixture %s: wrong tenant %q", m.ID, m.TenantID)
		}
	}
}

func TestFixtureProfiles(t *testing.T) {
	byID := make(map[string]*domain.Merchant)
	for _, m := range Fixtures("tenant-001") {
		byID[m.ID] = m
	}

	if tier := risk.RiskTier(byID["fx-healthy"]); tier != domain.TierHealthy {
		t.Errorf("fx-healthy: expected HEALTHY, got %s", tier)
	}
	if tier := risk.RiskTier(byID["fx-frozen"]); tier != domain.TierCritical {
		t.Errorf("fx-frozen: expected CRITICAL, got %s", tier)
	}
	if !byID["fx-pin-locked"].PinLocked {
		t.Error("fx-pin-locked: pin not locked")
	}
	if byID["fx-sim-swapped"].SIMSwapDaysAgo == nil {
		t.Error("fx-sim-swapped: missing swap counter")
	}
	if !byID["fx-suspended"].SettlementOnHold {
		t.Error("fx-suspended: hold not set")
	}
}
