package service

import (
	"context"
	"errors"

	"fitness-billing-be/internal/pkg/logger"
	billingEvents "fitness-billing-be/pkg/billing/events"
	"fitness-billing-be/pkg/events"
)

const eventsModule = "EVENTS"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService writes every lifecycle event to the structured log so that
// billing activity can be followed without a database query.
type consumerService struct {
	subscribers []events.Subscriber
	logger      logger.ILogger
}

// NewConsumerService listens on every given bus; nil entries are skipped.
func NewConsumerService(logger logger.ILogger, subscribers ...events.Subscriber) IConsumerService {
	cs := &consumerService{logger: logger}
	for _, sub := range subscribers {
		if sub != nil {
			cs.subscribers = append(cs.subscribers, sub)
		}
	}
	return cs
}

// Consume attaches the handler and returns; delivery continues until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	var errs []error
	for _, sub := range cs.subscribers {
		if err := sub.Subscribe(ctx, cs.handle); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (cs *consumerService) handle(ctx context.Context, event events.Event) error {
	details := map[string]interface{}{
		"type":        event.EventType(),
		"occurred_at": event.Timestamp(),
	}
	for k, v := range event.Payload() {
		details[k] = v
	}

	switch event.EventType() {
	case billingEvents.BillingFailed:
		cs.logger.Warn(eventsModule, "Billing failed for subscriber", details)
	case billingEvents.SubscriptionActivated,
		billingEvents.SubscriptionRenewed,
		billingEvents.SubscriptionCancelled,
		billingEvents.SubscriptionExpired:
		cs.logger.Info(eventsModule, "Subscription lifecycle event", details)
	default:
		cs.logger.Debug(eventsModule, "Unhandled event", details)
	}
	return nil
}
