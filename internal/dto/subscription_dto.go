package dto

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionResponse struct {
	Id                      uuid.UUID  `json:"id"`
	PlanType                string     `json:"plan_type"`
	Amount                  int64      `json:"amount"`
	Status                  string     `json:"status"`
	Channel                 string     `json:"channel"`
	Telco                   string     `json:"telco"`
	Phone                   string     `json:"phone"`
	StartDate               time.Time  `json:"start_date"`
	EndDate                 time.Time  `json:"end_date"`
	AutoRenewal             bool       `json:"auto_renewal"`
	RenewalCount            int        `json:"renewal_count"`
	AggregatorTransactionId string     `json:"aggregator_transaction_id,omitempty"`
	CancelledAt             *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason      *string    `json:"cancellation_reason,omitempty"`
	TelcoStatusCode         string     `json:"telco_status_code,omitempty"`
	TelcoStatusMessage      string     `json:"telco_status_message,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

type SubscriberResponse struct {
	Id                  uuid.UUID  `json:"id"`
	Phone               string     `json:"phone"`
	FullName            string     `json:"full_name"`
	SubscriptionStatus  string     `json:"subscription_status"`
	SubscriptionPlan    string     `json:"subscription_plan,omitempty"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
}

type UserSubscriptionResponse struct {
	User               SubscriberResponse    `json:"user"`
	ActiveSubscription *SubscriptionResponse `json:"active_subscription"`
}

type SubscriptionAccessResponse struct {
	HasActiveSubscription bool `json:"has_active_subscription"`
}

type CancelSubscriptionRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type SubscriptionHistoryResponse struct {
	Items  []*SubscriptionResponse `json:"items"`
	Total  int64                   `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

type SubscriptionStatsResponse struct {
	TotalSubscriptions int64            `json:"total_subscriptions"`
	ActiveSubscribers  int64            `json:"active_subscribers"`
	TotalRevenue       int64            `json:"total_revenue"`
	ByStatus           map[string]int64 `json:"by_status"`
	PlanDistribution   map[string]int64 `json:"plan_distribution"`
}
