// Package lifecycle applies billing events to the subscription ledger and the
// user billing mirror. Every method runs inside the caller's open unit of work.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"
)

const module = "LIFECYCLE"

// Audit event types written by transitions that do not come from the aggregator.
const (
	AuditUserCancellation = "USER_CANCELLATION"
	AuditLazyExpiry       = "LAZY_EXPIRY"
	AuditSuperseded       = "SUPERSEDED"
)

const DefaultUnsubscribeReason = "telco_unsubscription"

// Notification is a normalized aggregator event.
type Notification struct {
	Type           string
	Phone          string // canonical
	Amount         int64  // kobo
	TransactionRef string
	ProductId      string
	Telco          entity.Telco
	Channel        entity.Channel
	StatusCode     string
	StatusMessage  string
	Reason         string
	Raw            []byte
}

// Outcome describes what a transition touched.
type Outcome struct {
	User *entity.User

	// Subscription is the row the event is about, if any.
	Subscription *entity.Subscription

	// Affected lists every ledger row whose status changed.
	Affected []*entity.Subscription

	// Replayed is set when the transaction was already in the ledger.
	Replayed bool
}

type Manager struct {
	logger logger.ILogger
	now    func() time.Time
}

func NewManager(logger logger.ILogger) *Manager {
	return &Manager{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) requireUserByPhone(ctx context.Context, uow unitofwork.UnitOfWork, phone string) (*entity.User, error) {
	if phone == "" {
		return nil, billing.ErrMissingPhone
	}
	user, err := uow.UserRepository().FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", billing.ErrUserNotFound, phone)
	}
	return user, nil
}

func (m *Manager) audit(ctx context.Context, uow unitofwork.UnitOfWork, sub *entity.Subscription, eventType, transactionId string, payload []byte, note string) error {
	event := &entity.SubscriptionAuditEvent{
		SubscriptionId: sub.Id,
		EventType:      eventType,
		TransactionId:  transactionId,
		Payload:        payload,
		Note:           note,
	}
	if err := uow.SubscriptionRepository().AppendAuditEvent(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	sub.AuditTrail = append(sub.AuditTrail, *event)
	return nil
}

func (m *Manager) activeRows(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) ([]*entity.Subscription, error) {
	rows, err := uow.SubscriptionRepository().FindByUserAndStatus(ctx, user.Id, entity.SubscriptionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("find active subscriptions: %w", err)
	}
	return rows, nil
}
