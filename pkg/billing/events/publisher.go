// Package events emits subscription lifecycle events after a billing change
// has been committed.
package events

import (
	"context"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/logger"
	pkgEvents "fitness-billing-be/pkg/events"
)

const (
	SubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	SubscriptionRenewed   = "SUBSCRIPTION_RENEWED"
	SubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	SubscriptionExpired   = "SUBSCRIPTION_EXPIRED"
	BillingFailed         = "BILLING_FAILED"
)

const module = "EVENTS"

// Publisher abstracts lifecycle event publishing. Publishing never fails the
// caller; errors are logged.
type Publisher interface {
	PublishSubscriptionActivated(ctx context.Context, user *entity.User, sub *entity.Subscription)
	PublishSubscriptionRenewed(ctx context.Context, user *entity.User, sub *entity.Subscription)
	PublishSubscriptionCancelled(ctx context.Context, user *entity.User, sub *entity.Subscription, trigger string)
	PublishSubscriptionExpired(ctx context.Context, user *entity.User)
	PublishBillingFailed(ctx context.Context, user *entity.User, statusCode, statusMessage string)
}

// BusPublisher sends to the primary bus and falls back to the secondary one
// when the primary rejects the event.
type BusPublisher struct {
	primary  pkgEvents.Publisher
	fallback pkgEvents.Publisher
	logger   logger.ILogger
	now      func() time.Time
}

// NewBusPublisher accepts a nil primary or fallback.
func NewBusPublisher(primary, fallback pkgEvents.Publisher, logger logger.ILogger) *BusPublisher {
	return &BusPublisher{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *BusPublisher) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: p.now(),
	}

	if p.primary != nil {
		err := p.primary.Publish(ctx, evt)
		if err == nil {
			return
		}
		p.logger.Warn(module, "Primary bus rejected event, using fallback", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
	if p.fallback == nil {
		return
	}
	if err := p.fallback.Publish(ctx, evt); err != nil {
		p.logger.Error(module, "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func userData(user *entity.User) map[string]interface{} {
	data := map[string]interface{}{
		"user_id": user.Id.String(),
		"phone":   user.Phone,
		"status":  string(user.SubscriptionStatus),
		"plan":    string(user.SubscriptionPlan),
	}
	if user.SubscriptionEndDate != nil {
		data["end_date"] = user.SubscriptionEndDate.Format(time.RFC3339)
	}
	return data
}

func withSubscription(data map[string]interface{}, sub *entity.Subscription) map[string]interface{} {
	if sub == nil {
		return data
	}
	data["subscription_id"] = sub.Id.String()
	data["amount"] = sub.Amount
	data["telco"] = string(sub.Telco)
	data["renewal_count"] = sub.RenewalCount
	data["transaction_id"] = sub.AggregatorTransactionId
	return data
}

func (p *BusPublisher) PublishSubscriptionActivated(ctx context.Context, user *entity.User, sub *entity.Subscription) {
	p.emit(ctx, SubscriptionActivated, withSubscription(userData(user), sub))
}

func (p *BusPublisher) PublishSubscriptionRenewed(ctx context.Context, user *entity.User, sub *entity.Subscription) {
	p.emit(ctx, SubscriptionRenewed, withSubscription(userData(user), sub))
}

func (p *BusPublisher) PublishSubscriptionCancelled(ctx context.Context, user *entity.User, sub *entity.Subscription, trigger string) {
	data := withSubscription(userData(user), sub)
	data["trigger"] = trigger
	p.emit(ctx, SubscriptionCancelled, data)
}

func (p *BusPublisher) PublishSubscriptionExpired(ctx context.Context, user *entity.User) {
	p.emit(ctx, SubscriptionExpired, userData(user))
}

func (p *BusPublisher) PublishBillingFailed(ctx context.Context, user *entity.User, statusCode, statusMessage string) {
	data := userData(user)
	data["status_code"] = statusCode
	data["status_message"] = statusMessage
	p.emit(ctx, BillingFailed, data)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishSubscriptionActivated(context.Context, *entity.User, *entity.Subscription) {}

func (NopPublisher) PublishSubscriptionRenewed(context.Context, *entity.User, *entity.Subscription) {}

func (NopPublisher) PublishSubscriptionCancelled(context.Context, *entity.User, *entity.Subscription, string) {}

func (NopPublisher) PublishSubscriptionExpired(context.Context, *entity.User) {}

func (NopPublisher) PublishBillingFailed(context.Context, *entity.User, string, string) {}
