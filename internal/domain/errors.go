package domain

import "fmt"

// UnknownActionError is returned when an action key is not one of the 12
// catalog entries. Always a caller bug; never retried.
type UnknownActionError struct {
	ActionKey string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action key %q", e.ActionKey)
}

// InvalidMerchantStateError reports a sensor value outside its declared enum
// or a broken cross-field invariant. It indicates corrupted upstream data
// and is surfaced loudly rather than coerced.
type InvalidMerchantStateError struct {
	MerchantID string
	Field      string
	Detail     string
}

func (e *InvalidMerchantStateError) Error() string {
	return fmt.Sprintf("invalid merchant state: merchant=%s field=%s: %s", e.MerchantID, e.Field, e.Detail)
}

func invalidState(merchantID, field, detail string) error {
	return &InvalidMerchantStateError{MerchantID: merchantID, Field: field, Detail: detail}
}
