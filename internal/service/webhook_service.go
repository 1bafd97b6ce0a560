package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitness-billing-be/internal/dto"
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/pkg/serverutils"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"
	billingEvents "fitness-billing-be/pkg/billing/events"
	"fitness-billing-be/pkg/billing/lifecycle"
	"fitness-billing-be/pkg/dedup"
	"fitness-billing-be/pkg/phone"
	"fitness-billing-be/pkg/webhook"
)

const webhookModule = "WEBHOOK"

type IWebhookService interface {
	// HandleWebhook returns an error only for authentication failures and
	// unexpected crashes. Business failures come back as Success=false.
	HandleWebhook(ctx context.Context, raw []byte, signature string) (*dto.WebhookResult, error)
}

type webhookService struct {
	uowFactory unitofwork.RepositoryFactory
	manager    *lifecycle.Manager
	verifier   *webhook.Verifier
	phones     phone.Formatter
	dedup      dedup.Cache
	publisher  billingEvents.Publisher
	logger     logger.ILogger
}

func NewWebhookService(
	uowFactory unitofwork.RepositoryFactory,
	manager *lifecycle.Manager,
	verifier *webhook.Verifier,
	phones phone.Formatter,
	dedupCache dedup.Cache,
	publisher billingEvents.Publisher,
	logger logger.ILogger,
) IWebhookService {
	if dedupCache == nil {
		dedupCache = dedup.Disabled{}
	}
	if publisher == nil {
		publisher = billingEvents.NopPublisher{}
	}
	return &webhookService{
		uowFactory: uowFactory,
		manager:    manager,
		verifier:   verifier,
		phones:     phones,
		dedup:      dedupCache,
		publisher:  publisher,
		logger:     logger,
	}
}

func failed(event, message string) *dto.WebhookResult {
	return &dto.WebhookResult{Success: false, Message: message, Event: event}
}

func (s *webhookService) HandleWebhook(ctx context.Context, raw []byte, signature string) (result *dto.WebhookResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(webhookModule, "Panic while processing webhook", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			result = nil
			err = fmt.Errorf("webhook processing panicked: %v", r)
		}
	}()

	// 1. Signature
	if s.verifier.Skips() {
		s.logger.Warn(webhookModule, "Webhook signature verification skipped: no secret configured", nil)
	} else if err := s.verifier.Verify(raw, signature); err != nil {
		s.logger.Warn(webhookModule, "Rejected webhook with invalid signature", map[string]interface{}{
			"error":         err.Error(),
			"has_signature": signature != "",
		})
		return nil, err
	}

	// 2. Decode and validate
	var req dto.TelcoWebhookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warn(webhookModule, "Malformed webhook payload", map[string]interface{}{"error": err.Error()})
		return failed("", fmt.Sprintf("invalid payload: %v", err)), nil
	}
	eventType := billing.ParseEventType(req.Type)
	if err := serverutils.ValidateRequest(req); err != nil {
		var ve *serverutils.ValidationError
		if errors.As(err, &ve) {
			if _, missing := ve.Fields["details.phone"]; missing {
				err = billing.ErrMissingPhone
			}
		}
		s.logger.Warn(webhookModule, "Webhook payload failed validation", map[string]interface{}{
			"type":  string(eventType),
			"error": err.Error(),
		})
		return failed(string(eventType), err.Error()), nil
	}

	n, err := s.normalize(req, eventType, raw)
	if err != nil {
		return failed(string(eventType), err.Error()), nil
	}

	kind := eventType.Kind()
	if kind == billing.KindUnknown {
		s.logger.Warn(webhookModule, "Ignoring unknown webhook type", map[string]interface{}{
			"type":  req.Type,
			"phone": n.Phone,
		})
		return &dto.WebhookResult{Success: true, Message: "Event type ignored", Event: req.Type}, nil
	}

	// 3. Fast replay filter
	var dedupKey string
	if n.TransactionRef != "" {
		dedupKey = dedup.Key(string(eventType), n.Phone, n.TransactionRef)
		seen, err := s.dedup.Seen(ctx, dedupKey)
		if err != nil {
			s.logger.Warn("DEDUP", "Replay cache unavailable", map[string]interface{}{"error": err.Error()})
		} else if seen {
			s.logger.Info(webhookModule, "Replay absorbed by cache", map[string]interface{}{
				"type":           string(eventType),
				"phone":          n.Phone,
				"transaction_id": n.TransactionRef,
			})
			return &dto.WebhookResult{Success: true, Message: "Event already processed", Event: string(eventType), Duplicate: true}, nil
		}
	}

	// 4. Apply inside one transaction
	outcome, duplicate, err := s.apply(ctx, kind, n)
	if errors.Is(err, billing.ErrDuplicateTransaction) {
		// The ledger's unique index caught a replay the receipt did not
		duplicate, err = true, nil
	}
	if err != nil {
		s.logger.Error(webhookModule, "Failed to process webhook", map[string]interface{}{
			"type":           string(eventType),
			"phone":          n.Phone,
			"transaction_id": n.TransactionRef,
			"error":          err.Error(),
		})
		return failed(string(eventType), err.Error()), nil
	}

	if dedupKey != "" {
		if err := s.dedup.Mark(ctx, dedupKey); err != nil {
			s.logger.Warn("DEDUP", "Failed to mark processed event", map[string]interface{}{"error": err.Error()})
		}
	}

	if duplicate {
		s.logger.Warn(webhookModule, "Duplicate transaction acknowledged", map[string]interface{}{
			"type":           string(eventType),
			"phone":          n.Phone,
			"transaction_id": n.TransactionRef,
		})
		return &dto.WebhookResult{Success: true, Message: "Event already processed", Event: string(eventType), Duplicate: true}, nil
	}

	// 5. Notify
	message := s.publish(ctx, kind, n, outcome)

	s.logger.Info(webhookModule, "Webhook processed", map[string]interface{}{
		"type":           string(eventType),
		"phone":          n.Phone,
		"transaction_id": n.TransactionRef,
		"affected":       len(outcome.Affected),
	})
	return &dto.WebhookResult{Success: true, Message: message, Event: string(eventType)}, nil
}

func (s *webhookService) normalize(req dto.TelcoWebhookRequest, eventType billing.EventType, raw []byte) (lifecycle.Notification, error) {
	canonical := s.phones.Format(req.Details.Phone.String())
	if canonical == "" {
		return lifecycle.Notification{}, billing.ErrMissingPhone
	}

	telco, known := entity.ParseTelco(req.Telco)
	if !known && req.Telco != "" {
		s.logger.Warn(webhookModule, "Unrecognised telco", map[string]interface{}{"telco": req.Telco})
	}

	payload, err := webhook.Canonicalize(raw)
	if err != nil {
		payload = raw
	}

	return lifecycle.Notification{
		Type:           string(eventType),
		Phone:          canonical,
		Amount:         int64(req.Details.Amount),
		TransactionRef: req.Details.TelcoRef.String(),
		ProductId:      req.Product.Id.String(),
		Telco:          telco,
		Channel:        entity.ParseChannel(req.Details.Channel),
		StatusCode:     req.Details.TelcoStatusCode.String(),
		StatusMessage:  req.Details.TelcoStatusMessage,
		Reason:         req.Details.Reason,
		Raw:            payload,
	}, nil
}

// apply reports duplicate=true when the receipt was already claimed or the
// ledger already holds the transaction.
func (s *webhookService) apply(ctx context.Context, kind billing.EventKind, n lifecycle.Notification) (*lifecycle.Outcome, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.Lock(ctx, n.Phone); err != nil {
		return nil, false, fmt.Errorf("lock phone: %w", err)
	}

	if n.TransactionRef != "" {
		claimed, err := uow.EventReceiptRepository().Claim(ctx, &entity.BillingEventReceipt{
			Phone:         n.Phone,
			TransactionId: n.TransactionRef,
			EventType:     n.Type,
			ProcessedAt:   s.manager.Now(),
		})
		if err != nil {
			return nil, false, fmt.Errorf("claim event receipt: %w", err)
		}
		if !claimed {
			return nil, true, nil
		}
	} else {
		s.logger.Warn(webhookModule, "Webhook has no telco_ref, replays cannot be detected", map[string]interface{}{
			"type":  n.Type,
			"phone": n.Phone,
		})
	}

	var (
		outcome *lifecycle.Outcome
		err     error
	)
	switch kind {
	case billing.KindActivation:
		outcome, err = s.manager.Activate(ctx, uow, n)
	case billing.KindRenewal:
		outcome, err = s.manager.Renew(ctx, uow, n)
	case billing.KindUnsubscription:
		outcome, err = s.manager.Unsubscribe(ctx, uow, n)
	case billing.KindFailure:
		outcome, err = s.manager.Fail(ctx, uow, n)
	default:
		return nil, false, fmt.Errorf("no handler for %s events", kind)
	}
	if err != nil {
		return nil, false, err
	}

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return outcome, outcome.Replayed, nil
}

func (s *webhookService) publish(ctx context.Context, kind billing.EventKind, n lifecycle.Notification, outcome *lifecycle.Outcome) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	switch kind {
	case billing.KindActivation:
		s.publisher.PublishSubscriptionActivated(ctx, outcome.User, outcome.Subscription)
		return "Subscription activated"
	case billing.KindRenewal:
		s.publisher.PublishSubscriptionRenewed(ctx, outcome.User, outcome.Subscription)
		return "Subscription renewed"
	case billing.KindUnsubscription:
		if len(outcome.Affected) == 0 {
			return "No active subscription to cancel"
		}
		s.publisher.PublishSubscriptionCancelled(ctx, outcome.User, outcome.Subscription, "telco")
		return "Subscription cancelled"
	case billing.KindFailure:
		s.publisher.PublishBillingFailed(ctx, outcome.User, n.StatusCode, n.StatusMessage)
		return "Billing failure recorded"
	}
	return "Event processed"
}
