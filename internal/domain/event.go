package domain

import "time"

// EventType names a discrete state transition applied to a merchant twin.
type EventType string

const (
	EventSimSwap            EventType = "sim_swap"
	EventPinAttempt         EventType = "pin_attempt"
	EventPinReset           EventType = "pin_reset"
	EventAccountSuspend     EventType = "account_suspend"
	EventAccountReactivate  EventType = "account_reactivate"
	EventAccountFreeze      EventType = "account_freeze"
	EventKycRenewal         EventType = "kyc_renewal"
	EventKycApproval        EventType = "kyc_approval"
	EventAdvanceDays        EventType = "advance_days"
	EventTransaction        EventType = "transaction"
	EventSettlement         EventType = "settlement"
	EventStartKeyReset      EventType = "start_key_reset"
	EventNotificationToggle EventType = "notification_toggle"
)

// TwinEvent is an applied transition, persisted for audit and replay.
// Days is set for advance_days, Amount for transaction; both are zero
// otherwise.
type TwinEvent struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	MerchantID string    `json:"merchantId"`
	Type       EventType `json:"type"`
	Days       int       `json:"days,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	AppliedAt  time.Time `json:"appliedAt"`
}
