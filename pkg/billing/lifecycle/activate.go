package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"
)

// Activate applies a new-subscription event. The user is created when the
// phone has never been seen. Replaying a known transaction returns the
// existing row untouched. A replay that only the ledger's unique index
// catches fails with billing.ErrDuplicateTransaction and the caller rolls
// back.
func (m *Manager) Activate(ctx context.Context, uow unitofwork.UnitOfWork, n Notification) (*Outcome, error) {
	if n.Phone == "" {
		return nil, billing.ErrMissingPhone
	}
	subRepo := uow.SubscriptionRepository()

	// 1. Replay of a transaction already in the ledger
	existing, err := subRepo.FindByTransaction(ctx, n.Phone, n.TransactionRef)
	if err != nil {
		return nil, fmt.Errorf("find subscription by transaction: %w", err)
	}
	if existing != nil {
		m.logger.Warn(module, "Transaction already recorded, skipping activation", map[string]interface{}{
			"phone":           n.Phone,
			"transaction_id":  n.TransactionRef,
			"subscription_id": existing.Id.String(),
		})
		return &Outcome{Subscription: existing, Replayed: true}, nil
	}

	// 2. Find or create user
	user, err := uow.UserRepository().FindByPhone(ctx, n.Phone)
	if err != nil {
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	if user == nil {
		user = entity.NewSubscriberUser(n.Phone)
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create subscriber user: %w", err)
		}
		m.logger.Info(module, "Created subscriber user", map[string]interface{}{
			"user_id": user.Id.String(),
			"phone":   n.Phone,
		})
	}

	now := m.now()
	plan := billing.PlanFromAmount(n.Amount)
	end := billing.ComputeEndDate(now, plan)

	// 3. At most one active row per user
	outcome := &Outcome{User: user}
	previous, err := m.activeRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	for _, row := range previous {
		row.Status = entity.SubscriptionStatusExpired
		if err := subRepo.Update(ctx, row); err != nil {
			return nil, fmt.Errorf("close previous subscription: %w", err)
		}
		if err := m.audit(ctx, uow, row, AuditSuperseded, n.TransactionRef, nil, "replaced by new activation"); err != nil {
			return nil, err
		}
		outcome.Affected = append(outcome.Affected, row)
	}

	// 4. New ledger row
	sub := &entity.Subscription{
		UserId:                  user.Id,
		AggregatorTransactionId: n.TransactionRef,
		AggregatorProductId:     n.ProductId,
		PlanType:                plan,
		Amount:                  n.Amount,
		Channel:                 n.Channel,
		Telco:                   n.Telco,
		Phone:                   n.Phone,
		Status:                  entity.SubscriptionStatusActive,
		StartDate:               now,
		EndDate:                 end,
		AutoRenewal:             true,
		RenewalCount:            0,
		TelcoStatusCode:         n.StatusCode,
		TelcoStatusMessage:      n.StatusMessage,
	}
	if err := subRepo.Create(ctx, sub); err != nil {
		if errors.Is(err, billing.ErrDuplicateTransaction) {
			return nil, fmt.Errorf("%w: %s", err, n.TransactionRef)
		}
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if err := m.audit(ctx, uow, sub, n.Type, n.TransactionRef, n.Raw, "activated"); err != nil {
		return nil, err
	}

	// 5. Mirror
	if err := m.syncMirror(ctx, uow, user, mirrorUpdate{
		Status:  entity.SubscriptionStatusActive,
		Plan:    plan,
		EndDate: &end,
	}); err != nil {
		return nil, err
	}

	outcome.Subscription = sub
	outcome.Affected = append(outcome.Affected, sub)

	m.logger.Info(module, "Subscription activated", map[string]interface{}{
		"user_id":         user.Id.String(),
		"subscription_id": sub.Id.String(),
		"plan":            string(plan),
		"end_date":        end,
	})
	return outcome, nil
}
