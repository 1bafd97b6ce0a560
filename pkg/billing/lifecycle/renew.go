package lifecycle

import (
	"context"
	"fmt"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"
)

// Renew applies a renewal charge. The active row gets a new cycle window; a
// failed row is resumed; with neither, a fallback row is created so that a
// renewal delivered before its sync still grants access.
func (m *Manager) Renew(ctx context.Context, uow unitofwork.UnitOfWork, n Notification) (*Outcome, error) {
	user, err := m.requireUserByPhone(ctx, uow, n.Phone)
	if err != nil {
		return nil, err
	}
	subRepo := uow.SubscriptionRepository()

	now := m.now()
	plan := billing.PlanFromAmount(n.Amount)
	end := billing.ComputeEndDate(now, plan)
	outcome := &Outcome{User: user}

	// 1. Pick the row to extend
	target, err := m.renewalTarget(ctx, uow, user, outcome, n)
	if err != nil {
		return nil, err
	}

	if target != nil {
		target.Status = entity.SubscriptionStatusActive
		target.PlanType = plan
		target.Amount = n.Amount
		target.StartDate = now
		target.EndDate = end
		target.RenewalCount++
		target.TelcoStatusCode = n.StatusCode
		target.TelcoStatusMessage = n.StatusMessage
		if err := subRepo.Update(ctx, target); err != nil {
			return nil, fmt.Errorf("extend subscription: %w", err)
		}
		if err := m.audit(ctx, uow, target, n.Type, n.TransactionRef, n.Raw, fmt.Sprintf("renewal #%d", target.RenewalCount)); err != nil {
			return nil, err
		}
	} else {
		// 2. Renewal arrived before the sync
		txn := n.TransactionRef
		clash, err := subRepo.FindByTransaction(ctx, n.Phone, txn)
		if err != nil {
			return nil, fmt.Errorf("find subscription by transaction: %w", err)
		}
		if clash != nil {
			txn = ""
		}
		target = &entity.Subscription{
			UserId:                  user.Id,
			AggregatorTransactionId: txn,
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
			RenewalCount:            1,
			TelcoStatusCode:         n.StatusCode,
			TelcoStatusMessage:      n.StatusMessage,
		}
		if err := subRepo.Create(ctx, target); err != nil {
			return nil, fmt.Errorf("create fallback subscription: %w", err)
		}
		if err := m.audit(ctx, uow, target, n.Type, n.TransactionRef, n.Raw, "renewal without active subscription"); err != nil {
			return nil, err
		}
		m.logger.Warn(module, "Renewal without active subscription, created fallback row", map[string]interface{}{
			"user_id":        user.Id.String(),
			"transaction_id": n.TransactionRef,
		})
	}

	// 3. Mirror
	if err := m.syncMirror(ctx, uow, user, mirrorUpdate{
		Status:  entity.SubscriptionStatusActive,
		Plan:    plan,
		EndDate: &end,
	}); err != nil {
		return nil, err
	}

	outcome.Subscription = target
	outcome.Affected = append(outcome.Affected, target)

	m.logger.Info(module, "Subscription renewed", map[string]interface{}{
		"user_id":         user.Id.String(),
		"subscription_id": target.Id.String(),
		"renewal_count":   target.RenewalCount,
		"end_date":        end,
	})
	return outcome, nil
}

// renewalTarget returns the newest active row, or else the newest failed row.
// Extra active rows are closed so only one survives.
func (m *Manager) renewalTarget(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User, outcome *Outcome, n Notification) (*entity.Subscription, error) {
	active, err := m.activeRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		for _, extra := range active[1:] {
			extra.Status = entity.SubscriptionStatusExpired
			if err := uow.SubscriptionRepository().Update(ctx, extra); err != nil {
				return nil, fmt.Errorf("close duplicate active subscription: %w", err)
			}
			if err := m.audit(ctx, uow, extra, AuditSuperseded, n.TransactionRef, nil, "duplicate active row closed on renewal"); err != nil {
				return nil, err
			}
			outcome.Affected = append(outcome.Affected, extra)
		}
		return active[0], nil
	}

	failed, err := uow.SubscriptionRepository().FindByUserAndStatus(ctx, user.Id, entity.SubscriptionStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("find failed subscriptions: %w", err)
	}
	if len(failed) > 0 {
		m.logger.Info(module, "Resuming subscription after billing failure", map[string]interface{}{
			"user_id":         user.Id.String(),
			"subscription_id": failed[0].Id.String(),
		})
		return failed[0], nil
	}
	return nil, nil
}
