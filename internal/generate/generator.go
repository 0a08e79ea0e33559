// Package generate produces merchant twins for demos, tests, and load
// drivers: a curated fixture set covering every failure profile, and a
// seeded weighted-random generator with realistic joint distributions.
package generate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/shrike/internal/domain"
)

var firstNames = []string{"Amina", "Brian", "Chiku", "David", "Esther", "Felix", "Grace", "Hassan", "Irene", "Joseph", "Khadija", "Lucy", "Moses", "Naomi", "Otieno", "Peter", "Rehema", "Samuel", "Tabitha", "Wanjiku"}
var businessTypes = []string{"General Store", "Pharmacy", "Hardware", "Salon", "Butchery", "Electronics", "Cyber Cafe", "Grocery", "Boda Stage", "Fuel Station"}
var regions = []string{"Nairobi", "Mombasa", "Kisumu", "Nakuru", "Eldoret", "Thika", "Machakos", "Nyeri"}

// Override mutates a freshly generated merchant before validation.
type Override func(*domain.Merchant)

// Generator produces merchants from a seeded pseudo-random source, so a
// fixed seed reproduces the same fleet.
type Generator struct {
	rng      *rand.Rand
	tenantID string
}

// New creates a generator for a tenant with the given seed.
func New(tenantID string, seed int64) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		tenantID: tenantID,
	}
}

// healthy returns a baseline merchant with every sensor green.
func (g *Generator) healthy() *domain.Merchant {
	now := time.Now().UTC()
	return &domain.Merchant{
		ID:                   uuid.NewString(),
		TenantID:             g.tenantID,
		Name:                 fmt.Sprintf("%s %s", pick(g.rng, firstNames), pick(g.rng, businessTypes)),
		Phone:                fmt.Sprintf("+2547%08d", g.rng.Intn(100000000)),
		Region:               pick(g.rng, regions),
		BusinessType:         pick(g.rng, businessTypes),
		BankAccount:          fmt.Sprintf("01%010d", g.rng.Intn(1000000000)),
		AccountStatus:        domain.AccountActive,
		KYCStatus:            domain.KYCVerified,
		KYCAgeDays:           g.rng.Intn(300),
		SIMStatus:            domain.SIMActive,
		PinAttempts:          0,
		PinLocked:            false,
		StartKeyStatus:       domain.StartKeyValid,
		Balance:              5000 + float64(g.rng.Intn(95000)),
		DormantDays:          g.rng.Intn(7),
		OperatorDormantDays:  g.rng.Intn(14),
		NotificationsEnabled: true,
		SettlementOnHold:     false,
		CreatedAt:            now,
	}
}

// afflictions are weighted failure profiles layered onto a healthy
// baseline. Weights reflect the observed fleet mix: most merchants stay
// healthy, a minority carry one issue, a small tail compounds several.
var afflictions = []struct {
	weight int
	apply  func(rng *rand.Rand, m *domain.Merchant)
}{
	{20, func(rng *rand.Rand, m *domain.Merchant) { // low float
		m.Balance = float64(rng.Intn(5000))
	}},
	{14, func(rng *rand.Rand, m *domain.Merchant) { // pin trouble
		m.PinAttempts = 2 + rng.Intn(2)
		m.PinLocked = m.PinAttempts >= domain.MaxPinAttempts
	}},
	{12, func(rng *rand.Rand, m *domain.Merchant) { // drifting dormant
		m.DormantDays = 30 + rng.Intn(29)
	}},
	{10, func(rng *rand.Rand, m *domain.Merchant) { // auto-suspended
		m.DormantDays = 60 + rng.Intn(120)
		m.AccountStatus = domain.AccountSuspended
		m.SettlementOnHold = true
	}},
	{10, func(rng *rand.Rand, m *domain.Merchant) { // kyc expired
		m.KYCStatus = domain.KYCExpired
		m.KYCAgeDays = 365 + rng.Intn(200)
	}},
	{8, func(rng *rand.Rand, m *domain.Merchant) { // kyc pending
		m.KYCStatus = domain.KYCPending
		m.KYCAgeDays = rng.Intn(30)
	}},
	{8, func(rng *rand.Rand, m *domain.Merchant) { // recent sim swap
		days := rng.Intn(5)
		m.SIMStatus = domain.SIMSwapped
		m.SIMSwapDaysAgo = &days
	}},
	{6, func(rng *rand.Rand, m *domain.Merchant) { // notifications off
		m.NotificationsEnabled = false
	}},
	{5, func(rng *rand.Rand, m *domain.Merchant) { // operator ghosting
		m.OperatorDormantDays = 90 + rng.Intn(90)
	}},
	{4, func(rng *rand.Rand, m *domain.Merchant) { // start key broken
		if rng.Intn(2) == 0 {
			m.StartKeyStatus = domain.StartKeyInvalid
		} else {
			m.StartKeyStatus = domain.StartKeyExpired
		}
	}},
	{3, func(rng *rand.Rand, m *domain.Merchant) { // frozen, the works
		m.AccountStatus = domain.AccountFrozen
		m.SettlementOnHold = true
		m.KYCStatus = domain.KYCExpired
		m.KYCAgeDays = 400 + rng.Intn(200)
		m.PinAttempts = domain.MaxPinAttempts
		m.PinLocked = true
	}},
}

// GenerateMerchant produces one merchant: ~60% come out fully healthy, the
// rest carry one weighted affliction, and a small fraction compound a
// second one. Overrides apply last.
func (g *Generator) GenerateMerchant(overrides ...Override) *domain.Merchant {
	m := g.healthy()

	if g.rng.Intn(100) >= 60 {
		g.afflict(m)
		if g.rng.Intn(100) < 15 {
			g.afflict(m)
		}
	}

	for _, o := range overrides {
		o(m)
	}
	return m
}

func (g *Generator) afflict(m *domain.Merchant) {
	total := 0
	for _, a := range afflictions {
		total += a.weight
	}
	n := g.rng.Intn(total)
	for _, a := range afflictions {
		n -= a.weight
		if n < 0 {
			a.apply(g.rng, m)
			return
		}
	}
}

// GenerateBatch produces n merchants.
func (g *Generator) GenerateBatch(n int) []*domain.Merchant {
	out := make([]*domain.Merchant, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.GenerateMerchant())
	}
	return out
}

// Fixtures returns the curated merchant set: every failure profile appears
// at least once, plus a fully healthy baseline. IDs are stable for tests
// and demos.
func Fixtures(tenantID string) []*domain.Merchant {
	now := time.Now().UTC()
	base := func(id, name string) *domain.Merchant {
		return &domain.Merchant{
			ID:                   id,
			TenantID:             tenantID,
			Name:                 name,
			Phone:                "+254700000000",
			Region:               "Nairobi",
			BusinessType:         "General Store",
			AccountStatus:        domain.AccountActive,
			KYCStatus:            domain.KYCVerified,
			KYCAgeDays:           120,
			SIMStatus:            domain.SIMActive,
			StartKeyStatus:       domain.StartKeyValid,
			Balance:              25000,
			NotificationsEnabled: true,
			CreatedAt:            now,
		}
	}

	swapDays := 1

	healthy := base("fx-healthy", "Healthy Baseline")

	pinLocked := base("fx-pin-locked", "PIN Locked")
	pinLocked.PinAttempts = domain.MaxPinAttempts
	pinLocked.PinLocked = true

	suspended := base("fx-suspended", "Dormant Suspended")
	suspended.AccountStatus = domain.AccountSuspended
	suspended.DormantDays = 75
	suspended.SettlementOnHold = true

	kycExpired := base("fx-kyc-expired", "KYC Expired")
	kycExpired.KYCStatus = domain.KYCExpired
	kycExpired.KYCAgeDays = 400

	simSwapped := base("fx-sim-swapped", "Fresh SIM Swap")
	simSwapped.SIMStatus = domain.SIMSwapped
	simSwapped.SIMSwapDaysAgo = &swapDays

	lowFloat := base("fx-low-float", "Low Float")
	lowFloat.Balance = 1200

	startKey := base("fx-start-key", "Expired Start Key")
	startKey.StartKeyStatus = domain.StartKeyExpired
	startKey.DormantDays = 560
	startKey.AccountStatus = domain.AccountSuspended
	startKey.SettlementOnHold = true

	noNotify := base("fx-no-notify", "Notifications Off")
	noNotify.NotificationsEnabled = false

	operatorGhost := base("fx-operator-ghost", "Operator Inactive")
	operatorGhost.OperatorDormantDays = 120

	frozen := base("fx-frozen", "Frozen Compound Failure")
	frozen.AccountStatus = domain.AccountFrozen
	frozen.KYCStatus = domain.KYCExpired
	frozen.KYCAgeDays = 500
	frozen.PinAttempts = domain.MaxPinAttempts
	frozen.PinLocked = true
	frozen.SettlementOnHold = true

	return []*domain.Merchant{
		healthy, pinLocked, suspended, kycExpired, simSwapped,
		lowFloat, startKey, noNotify, operatorGhost, frozen,
	}
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.Intn(len(items))]
}
