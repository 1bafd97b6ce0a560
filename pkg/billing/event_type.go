package billing

import "strings"

// EventType is the aggregator notification tag.
type EventType string

const (
	EventSync                EventType = "SYNC_NOTIFICATION"
	EventRenewal             EventType = "RENEWAL_NOTIFICATION"
	EventUnsubscription      EventType = "UNSUBSCRIPTION_NOTIFICATION"
	EventInsufficientBalance EventType = "INSUFFICIENT_BALANCE"
	EventBillingFailed       EventType = "BILLING_FAILED"
	EventChargeFailed        EventType = "CHARGE_FAILED"
	EventPaymentFailed       EventType = "PAYMENT_FAILED"
)

// EventKind groups event types by the transition they trigger.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindActivation
	KindRenewal
	KindUnsubscription
	KindFailure
)

func (k EventKind) String() string {
	switch k {
	case KindActivation:
		return "activation"
	case KindRenewal:
		return "renewal"
	case KindUnsubscription:
		return "unsubscription"
	case KindFailure:
		return "failure"
	}
	return "unknown"
}

func ParseEventType(raw string) EventType {
	return EventType(strings.ToUpper(strings.TrimSpace(raw)))
}

func (t EventType) Kind() EventKind {
	switch t {
	case EventSync:
		return KindActivation
	case EventRenewal:
		return KindRenewal
	case EventUnsubscription:
		return KindUnsubscription
	case EventInsufficientBalance, EventBillingFailed, EventChargeFailed, EventPaymentFailed:
		return KindFailure
	}
	return KindUnknown
}
