package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Subscription struct {
	Id                      uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId                  uuid.UUID  `gorm:"type:uuid;not null;index:idx_subscriptions_user_status,priority:1"`
	AggregatorTransactionId string     `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_subscriptions_phone_txn,priority:2,where:aggregator_transaction_id <> ''"`
	AggregatorProductId     string     `gorm:"type:varchar(255);not null;default:''"`
	PlanType                string     `gorm:"type:varchar(20);not null"`
	Amount                  int64      `gorm:"not null;default:0"`
	Channel                 string     `gorm:"type:varchar(10);not null;default:'SMS'"`
	Telco                   string     `gorm:"type:varchar(20);not null"`
	Phone                   string     `gorm:"type:varchar(20);not null;index;uniqueIndex:idx_subscriptions_phone_txn,priority:1,where:aggregator_transaction_id <> ''"`
	Status                  string     `gorm:"type:varchar(20);not null;index:idx_subscriptions_user_status,priority:2"`
	StartDate               time.Time  `gorm:"not null"`
	EndDate                 time.Time  `gorm:"not null;index"`
	AutoRenewal             bool       `gorm:"default:true"`
	RenewalCount            int        `gorm:"not null;default:0"`
	CancelledAt             *time.Time
	CancellationReason      *string   `gorm:"type:text"`
	TelcoStatusCode         string    `gorm:"type:varchar(50)"`
	TelcoStatusMessage      string    `gorm:"type:text"`
	CreatedAt               time.Time `gorm:"autoCreateTime"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime"`

	AuditEvents []*SubscriptionAuditEvent `gorm:"foreignKey:SubscriptionId"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

type SubscriptionAuditEvent struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubscriptionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventType      string         `gorm:"type:varchar(64);not null"`
	TransactionId  string         `gorm:"type:varchar(255)"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	Note           string         `gorm:"type:text"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
}

func (SubscriptionAuditEvent) TableName() string {
	return "subscription_audit_events"
}

type BillingEventReceipt struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Phone         string    `gorm:"type:varchar(20);not null;uniqueIndex:ux_billing_event_receipts_key,priority:1"`
	TransactionId string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_billing_event_receipts_key,priority:2"`
	EventType     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_billing_event_receipts_key,priority:3"`
	ProcessedAt   time.Time `gorm:"not null"`
}

func (BillingEventReceipt) TableName() string {
	return "billing_event_receipts"
}
