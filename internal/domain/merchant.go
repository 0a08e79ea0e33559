// Package domain defines the core types and interfaces for Shrike.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// AccountStatus is the lifecycle state of a merchant account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountFrozen    AccountStatus = "frozen"
)

// KYCStatus is the verification state of a merchant's KYC record.
type KYCStatus string

const (
	KYCVerified KYCStatus = "verified"
	KYCPending  KYCStatus = "pending"
	KYCExpired  KYCStatus = "expired"
)

// SIMStatus is the registration state of the merchant's SIM.
type SIMStatus string

const (
	SIMActive       SIMStatus = "active"
	SIMSwapped      SIMStatus = "swapped"
	SIMUnregistered SIMStatus = "unregistered"
)

// StartKeyStatus is the state of the merchant's till start key.
type StartKeyStatus string

const (
	StartKeyValid   StartKeyStatus = "valid"
	StartKeyInvalid StartKeyStatus = "invalid"
	StartKeyExpired StartKeyStatus = "expired"
)

// MaxPinAttempts is the attempt count at which the PIN locks.
const MaxPinAttempts = 3

// Merchant is the in-memory twin of a merchant account. Profile fields are
// static display data; sensor fields are the only inputs rules read.
// Snapshots are immutable by convention: transitions clone and return a new
// value, they never mutate in place.
type Merchant struct {
	// Identity / profile (never read by rules)
	ID           string `json:"id"`
	TenantID     string `json:"tenantId"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Region       string `json:"region"`
	BusinessType string `json:"businessType"`
	BankAccount  string `json:"bankAccount,omitempty"`

	// Sensors
	AccountStatus        AccountStatus  `json:"accountStatus"`
	KYCStatus            KYCStatus      `json:"kycStatus"`
	KYCAgeDays           int            `json:"kycAgeDays"`
	SIMStatus            SIMStatus      `json:"simStatus"`
	SIMSwapDaysAgo       *int           `json:"simSwapDaysAgo,omitempty"`
	PinAttempts          int            `json:"pinAttempts"`
	PinLocked            bool           `json:"pinLocked"`
	StartKeyStatus       StartKeyStatus `json:"startKeyStatus"`
	Balance              float64        `json:"balance"`
	DormantDays          int            `json:"dormantDays"`
	OperatorDormantDays  int            `json:"operatorDormantDays"`
	NotificationsEnabled bool           `json:"notificationsEnabled"`
	SettlementOnHold     bool           `json:"settlementOnHold"`

	// Audit trail for the most recent transition
	LastMutation string    `json:"lastMutation,omitempty"`
	MutatedAt    time.Time `json:"mutatedAt,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the merchant snapshot.
func (m *Merchant) Clone() *Merchant {
	out := *m
	if m.SIMSwapDaysAgo != nil {
		v := *m.SIMSwapDaysAgo
		out.SIMSwapDaysAgo = &v
	}
	return &out
}

// Validate checks every sensor against its declared enum and the cross-field
// invariants. A non-nil error is always an *InvalidMerchantStateError and
// indicates upstream data corruption, never a transient condition.
func (m *Merchant) Validate() error {
	switch m.AccountStatus {
	case AccountActive, AccountSuspended, AccountFrozen:
	default:
		return invalidState(m.ID, "account_status", fmt.Sprintf("unknown value %q", m.AccountStatus))
	}

	switch m.KYCStatus {
	case KYCVerified, KYCPending, KYCExpired:
	default:
		return invalidState(m.ID, "kyc_status", fmt.Sprintf("unknown value %q", m.KYCStatus))
	}
	if m.KYCAgeDays < 0 {
		return invalidState(m.ID, "kyc_age_days", "must be >= 0")
	}

	switch m.SIMStatus {
	case SIMActive, SIMSwapped, SIMUnregistered:
	default:
		return invalidState(m.ID, "sim_status", fmt.Sprintf("unknown value %q", m.SIMStatus))
	}
	if m.SIMStatus == SIMSwapped {
		if m.SIMSwapDaysAgo == nil {
			return invalidState(m.ID, "sim_swap_days_ago", "required when sim_status is swapped")
		}
		if *m.SIMSwapDaysAgo < 0 {
			return invalidState(m.ID, "sim_swap_days_ago", "must be >= 0")
		}
	} else if m.SIMSwapDaysAgo != nil {
		return invalidState(m.ID, "sim_swap_days_ago", "must be absent unless sim_status is swapped")
	}

	if m.PinAttempts < 0 || m.PinAttempts > MaxPinAttempts {
		return invalidState(m.ID, "pin_attempts", fmt.Sprintf("must be in [0,%d]", MaxPinAttempts))
	}
	if m.PinLocked != (m.PinAttempts >= MaxPinAttempts) {
		return invalidState(m.ID, "pin_locked", "disagrees with pin_attempts")
	}

	switch m.StartKeyStatus {
	case StartKeyValid, StartKeyInvalid, StartKeyExpired:
	default:
		return invalidState(m.ID, "start_key_status", fmt.Sprintf("unknown value %q", m.StartKeyStatus))
	}

	if m.Balance < 0 {
		return invalidState(m.ID, "balance", "must be >= 0")
	}
	if m.DormantDays < 0 {
		return invalidState(m.ID, "dormant_days", "must be >= 0")
	}
	if m.OperatorDormantDays < 0 {
		return invalidState(m.ID, "operator_dormant_days", "must be >= 0")
	}

	return nil
}

// SensorFingerprint returns a stable hash of the sensor fields only.
// Two snapshots with identical sensors produce identical scan results, so
// the fingerprint doubles as a cache key for scan reports.
func (m *Merchant) SensorFingerprint() string {
	swap := -1
	if m.SIMSwapDaysAgo != nil {
		swap = *m.SIMSwapDaysAgo
	}
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s|%d|%d|%t|%s|%.2f|%d|%d|%t|%t",
		m.AccountStatus, m.KYCStatus, m.KYCAgeDays,
		m.SIMStatus, swap,
		m.PinAttempts, m.PinLocked,
		m.StartKeyStatus, m.Balance,
		m.DormantDays, m.OperatorDormantDays,
		m.NotificationsEnabled, m.SettlementOnHold,
	))
	return hex.EncodeToString(h[:16])
}
