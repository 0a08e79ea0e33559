// Package twin implements the state-transition functions of the merchant
// twin. Every function takes a snapshot and returns a new snapshot tagged
// with the mutation name and timestamp; inputs are never mutated.
package twin

import (
	"fmt"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Day-counter thresholds crossed during AdvanceDays. The cascades fire
// inside the same transition call, against the already-aged counters.
const (
	KYCExpiryDays       = 365
	DormancySuspendDays = 60
	StartKeyExpiryDays  = 540
)

func stamp(m *domain.Merchant, mutation string) *domain.Merchant {
	m.LastMutation = mutation
	m.MutatedAt = time.Now().UTC()
	return m
}

// ApplySimSwap marks the SIM as swapped as of today.
func ApplySimSwap(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	zero := 0
	out.SIMStatus = domain.SIMSwapped
	out.SIMSwapDaysAgo = &zero
	return stamp(out, string(domain.EventSimSwap)), nil
}

// ApplyPinAttempt records one failed PIN entry. Attempts pin at the lock
// threshold; an attempt against a locked PIN returns the locked snapshot.
func ApplyPinAttempt(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	if out.PinAttempts < domain.MaxPinAttempts {
		out.PinAttempts++
	}
	out.PinLocked = out.PinAttempts >= domain.MaxPinAttempts
	return stamp(out, string(domain.EventPinAttempt)), nil
}

// ApplyPinReset clears the attempt counter and unlocks the PIN.
func ApplyPinReset(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.PinAttempts = 0
	out.PinLocked = false
	return stamp(out, string(domain.EventPinReset)), nil
}

// ApplyAccountSuspend moves the account to suspended.
func ApplyAccountSuspend(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.AccountStatus = domain.AccountSuspended
	return stamp(out, string(domain.EventAccountSuspend)), nil
}

// ApplyAccountReactivate restores a suspended or frozen account to active.
func ApplyAccountReactivate(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.AccountStatus = domain.AccountActive
	return stamp(out, string(domain.EventAccountReactivate)), nil
}

// ApplyAccountFreeze moves the account to frozen.
func ApplyAccountFreeze(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.AccountStatus = domain.AccountFrozen
	return stamp(out, string(domain.EventAccountFreeze)), nil
}

// ApplyKycRenewal starts a KYC renewal: status goes to pending and the
// record age resets.
func ApplyKycRenewal(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.KYCStatus = domain.KYCPending
	out.KYCAgeDays = 0
	return stamp(out, string(domain.EventKycRenewal)), nil
}

// ApplyKycApproval marks the KYC record verified with a fresh age.
func ApplyKycApproval(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.KYCStatus = domain.KYCVerified
	out.KYCAgeDays = 0
	return stamp(out, string(domain.EventKycApproval)), nil
}

// AdvanceDays ages every day counter by n and applies the threshold
// cascades atomically within the same call:
//   - KYC expires at kyc_age_days >= 365, only from verified
//   - the account auto-suspends and settlement goes on hold at
//     dormant_days >= 60, only from active
//   - the start key expires at dormant_days >= 540, only from valid
func AdvanceDays(m *domain.Merchant, n int) (*domain.Merchant, error) {
	if n < 0 {
		return nil, fmt.Errorf("advance_days: day count must be >= 0, got %d", n)
	}

	out := m.Clone()
	out.KYCAgeDays += n
	out.DormantDays += n
	out.OperatorDormantDays += n
	if out.SIMStatus == domain.SIMSwapped && out.SIMSwapDaysAgo != nil {
		aged := *out.SIMSwapDaysAgo + n
		out.SIMSwapDaysAgo = &aged
	}

	// Threshold cascades, evaluated against the new counters.
	if out.KYCStatus == domain.KYCVerified && out.KYCAgeDays >= KYCExpiryDays {
		out.KYCStatus = domain.KYCExpired
	}
	if out.AccountStatus == domain.AccountActive && out.DormantDays >= DormancySuspendDays {
		out.AccountStatus = domain.AccountSuspended
		out.SettlementOnHold = true
	}
	if out.StartKeyStatus == domain.StartKeyValid && out.DormantDays >= StartKeyExpiryDays {
		out.StartKeyStatus = domain.StartKeyExpired
	}

	return stamp(out, string(domain.EventAdvanceDays)), nil
}

// ApplyTransaction adjusts the balance by amount (negative for payouts) and
// resets both dormancy counters: a transaction proves the operator used the
// channel. The balance may never go below zero.
func ApplyTransaction(m *domain.Merchant, amount float64) (*domain.Merchant, error) {
	if amount == 0 {
		return nil, fmt.Errorf("transaction: amount must be non-zero")
	}
	out := m.Clone()
	next := out.Balance + amount
	if next < 0 {
		return nil, fmt.Errorf("transaction: amount %.2f would drive balance below zero (balance %.2f)", amount, out.Balance)
	}
	out.Balance = next
	out.DormantDays = 0
	out.OperatorDormantDays = 0
	return stamp(out, string(domain.EventTransaction)), nil
}

// ApplySettlement completes a settlement cycle: the balance is swept to the
// bank and any settlement hold is released.
func ApplySettlement(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.Balance = 0
	out.SettlementOnHold = false
	return stamp(out, string(domain.EventSettlement)), nil
}

// ApplyStartKeyReset issues a fresh till start key.
func ApplyStartKeyReset(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.StartKeyStatus = domain.StartKeyValid
	return stamp(out, string(domain.EventStartKeyReset)), nil
}

// ApplyNotificationToggle flips the SMS notification flag.
func ApplyNotificationToggle(m *domain.Merchant) (*domain.Merchant, error) {
	out := m.Clone()
	out.NotificationsEnabled = !out.NotificationsEnabled
	return stamp(out, string(domain.EventNotificationToggle)), nil
}

// Apply dispatches a TwinEvent to the matching transition. Used by the
// worker and the API to route externally supplied events.
func Apply(m *domain.Merchant, ev *domain.TwinEvent) (*domain.Merchant, error) {
	switch ev.Type {
	case domain.EventSimSwap:
		return ApplySimSwap(m)
	case domain.EventPinAttempt:
		return ApplyPinAttempt(m)
	case domain.EventPinReset:
		return ApplyPinReset(m)
	case domain.EventAccountSuspend:
		return ApplyAccountSuspend(m)
	case domain.EventAccountReactivate:
		return ApplyAccountReactivate(m)
	case domain.EventAccountFreeze:
		return ApplyAccountFreeze(m)
	case domain.EventKycRenewal:
		return ApplyKycRenewal(m)
	case domain.EventKycApproval:
		return ApplyKycApproval(m)
	case domain.EventAdvanceDays:
		return AdvanceDays(m, ev.Days)
	case domain.EventTransaction:
		return ApplyTransaction(m, ev.Amount)
	case domain.EventSettlement:
		return ApplySettlement(m)
	case domain.EventStartKeyReset:
		return ApplyStartKeyReset(m)
	case domain.EventNotificationToggle:
		return ApplyNotificationToggle(m)
	default:
		return nil, fmt.Errorf("unknown twin event type %q", ev.Type)
	}
}
