package entity

import (
	"time"

	"fitness-billing-be/pkg/billing"

	"github.com/google/uuid"
)

type SubscriptionStatus string
type Channel string
type Telco string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusFailed    SubscriptionStatus = "failed"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"

	ChannelSMS  Channel = "SMS"
	ChannelUSSD Channel = "USSD"
	ChannelWeb  Channel = "WEB"
	ChannelApp  Channel = "APP"

	TelcoMTN        Telco = "MTN"
	TelcoAirtel     Telco = "AIRTEL"
	TelcoNineMobile Telco = "NINEMOBILE"
)

// Subscription is one billing cycle (or attempt) in a user's ledger.
type Subscription struct {
	Id                      uuid.UUID
	UserId                  uuid.UUID
	AggregatorTransactionId string
	AggregatorProductId     string
	PlanType                billing.PlanType
	Amount                  int64 // kobo
	Channel                 Channel
	Telco                   Telco
	Phone                   string
	Status                  SubscriptionStatus
	StartDate               time.Time
	EndDate                 time.Time
	AutoRenewal             bool
	RenewalCount            int
	CancelledAt             *time.Time
	CancellationReason      *string
	TelcoStatusCode         string
	TelcoStatusMessage      string
	CreatedAt               time.Time
	UpdatedAt               time.Time

	// Loaded on demand
	AuditTrail []SubscriptionAuditEvent
}

// SubscriptionAuditEvent is an append-only record of a billing event applied to a row.
type SubscriptionAuditEvent struct {
	Id             uuid.UUID
	SubscriptionId uuid.UUID
	EventType      string
	TransactionId  string
	Payload        []byte // raw notification JSON
	Note           string
	CreatedAt      time.Time
}

// BillingEventReceipt marks a (phone, transaction, event type) as applied.
type BillingEventReceipt struct {
	Id            uuid.UUID
	Phone         string
	TransactionId string
	EventType     string
	ProcessedAt   time.Time
}

type SubscriptionStats struct {
	TotalSubscriptions int64
	ActiveSubscribers  int64
	TotalRevenue       int64 // kobo
	ByStatus           map[SubscriptionStatus]int64
	ByPlan             map[billing.PlanType]int64
}

func ParseChannel(raw string) Channel {
	switch Channel(normalizeTag(raw)) {
	case ChannelUSSD:
		return ChannelUSSD
	case ChannelWeb:
		return ChannelWeb
	case ChannelApp:
		return ChannelApp
	default:
		return ChannelSMS
	}
}

// ParseTelco maps the aggregator's operator names onto the known set.
// The second return value is false for operators we do not recognise.
func ParseTelco(raw string) (Telco, bool) {
	switch normalizeTag(raw) {
	case "MTN":
		return TelcoMTN, true
	case "AIRTEL":
		return TelcoAirtel, true
	case "NINEMOBILE", "9MOBILE", "ETISALAT":
		return TelcoNineMobile, true
	}
	return Telco(normalizeTag(raw)), false
}
