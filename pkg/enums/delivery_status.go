package enums

import (
	"fmt"
	"strings"
)

// DeliveryState is the canonical category of an order's delivery status.
type DeliveryState string

const (
	DeliveryStatePending           DeliveryState = "Pending"
	DeliveryStatePreparing         DeliveryState = "Preparing"
	DeliveryStateOutForDelivery    DeliveryState = "Out for delivery"
	DeliveryStateDelivered         DeliveryState = "Delivered"
	DeliveryStateCancelled         DeliveryState = "Cancelled"
	DeliveryStateAttemptedDelivery DeliveryState = "Attempted Delivery"
)

var validDeliveryStates = []DeliveryState{
	DeliveryStatePending,
	DeliveryStatePreparing,
	DeliveryStateOutForDelivery,
	DeliveryStateDelivered,
	DeliveryStateCancelled,
	DeliveryStateAttemptedDelivery,
}

// String implements fmt.Stringer.
func (d DeliveryState) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryState.
func (d DeliveryState) IsValid() bool {
	for _, candidate := range validDeliveryStates {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryState converts raw input into a DeliveryState. Matching is
// case-insensitive so that legacy records with mixed casing still resolve.
func ParseDeliveryState(value string) (DeliveryState, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validDeliveryStates {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery state %q", value)
}

// DeliveryStatus is a delivery state plus an optional human reason. Cancelled
// and attempted-delivery statuses carry the reason; other states do not.
// The legacy wire format is "<state>" or "<state>: <reason>".
type DeliveryStatus struct {
	State  DeliveryState
	Reason string
}

// Cancelled builds a cancelled status carrying the given reason.
func Cancelled(reason string) DeliveryStatus {
	return DeliveryStatus{State: DeliveryStateCancelled, Reason: reason}
}

// AttemptedDelivery builds an attempted-delivery status carrying the reason.
func AttemptedDelivery(reason string) DeliveryStatus {
	return DeliveryStatus{State: DeliveryStateAttemptedDelivery, Reason: reason}
}

// String serializes the status to the legacy wire format.
func (s DeliveryStatus) String() string {
	if s.Reason == "" {
		return string(s.State)
	}
	return fmt.Sprintf("%s: %s", s.State, s.Reason)
}

// Protected reports whether the status blocks customer-initiated cancellation.
func (s DeliveryStatus) Protected() bool {
	switch s.State {
	case DeliveryStatePreparing, DeliveryStateOutForDelivery, DeliveryStateDelivered:
		return true
	default:
		return false
	}
}

// Terminal reports whether the order has reached a reportable end state.
func (s DeliveryStatus) Terminal() bool {
	return s.State == DeliveryStateDelivered || s.State == DeliveryStateCancelled
}

// ParseDeliveryStatus splits the legacy wire format into state and reason.
// The prefix before the first colon determines the state; the remainder is
// kept verbatim as the reason.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	raw := strings.TrimSpace(value)
	prefix := raw
	reason := ""
	if idx := strings.Index(raw, ":"); idx >= 0 {
		prefix = strings.TrimSpace(raw[:idx])
		reason = strings.TrimSpace(raw[idx+1:])
	}

	state, err := ParseDeliveryState(prefix)
	if err != nil {
		return DeliveryStatus{}, err
	}
	return DeliveryStatus{State: state, Reason: reason}, nil
}
