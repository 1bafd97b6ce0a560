package lifecycle

import (
	"context"
	"fmt"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"

	"github.com/google/uuid"
)

// Unsubscribe applies a telco-side unsubscription. Active and paused (failed)
// rows are cancelled. A user with neither is left cancelled and the call
// succeeds.
func (m *Manager) Unsubscribe(ctx context.Context, uow unitofwork.UnitOfWork, n Notification) (*Outcome, error) {
	user, err := m.requireUserByPhone(ctx, uow, n.Phone)
	if err != nil {
		return nil, err
	}
	reason := n.Reason
	if reason == "" {
		reason = DefaultUnsubscribeReason
	}
	return m.cancelAll(ctx, uow, user, cancelRequest{
		eventType:     n.Type,
		transactionId: n.TransactionRef,
		reason:        reason,
		payload:       n.Raw,
	})
}

// Cancel is the user-initiated cancellation. It fails with
// billing.ErrNoActiveSubscription when there is nothing to cancel.
func (m *Manager) Cancel(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, reason string) (*Outcome, error) {
	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, billing.ErrUserNotFound
	}
	rows, err := m.activeRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, billing.ErrNoActiveSubscription
	}
	if reason == "" {
		reason = "user_requested"
	}
	return m.cancelAll(ctx, uow, user, cancelRequest{
		eventType: AuditUserCancellation,
		reason:    reason,
	})
}

type cancelRequest struct {
	eventType     string
	transactionId string
	reason        string
	payload       []byte
}

func (m *Manager) cancelAll(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User, req cancelRequest) (*Outcome, error) {
	now := m.now()
	outcome := &Outcome{User: user}

	rows, err := m.cancellableRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		cancelledAt := now
		reason := req.reason
		row.Status = entity.SubscriptionStatusCancelled
		row.EndDate = now
		row.AutoRenewal = false
		row.CancelledAt = &cancelledAt
		row.CancellationReason = &reason
		if err := uow.SubscriptionRepository().Update(ctx, row); err != nil {
			return nil, fmt.Errorf("cancel subscription: %w", err)
		}
		if err := m.audit(ctx, uow, row, req.eventType, req.transactionId, req.payload, reason); err != nil {
			return nil, err
		}
		outcome.Affected = append(outcome.Affected, row)
	}
	if len(rows) > 0 {
		outcome.Subscription = rows[0]
	}

	// Repeated cancellations keep the first cancellation time on the mirror
	upd := mirrorUpdate{Status: entity.SubscriptionStatusCancelled}
	if user.SubscriptionStatus != entity.SubscriptionStatusCancelled || len(rows) > 0 {
		upd.EndDate = &now
	}
	if err := m.syncMirror(ctx, uow, user, upd); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		m.logger.Info(module, "No active subscription to cancel", map[string]interface{}{
			"user_id": user.Id.String(),
			"trigger": req.eventType,
		})
	} else {
		m.logger.Info(module, "Subscription cancelled", map[string]interface{}{
			"user_id":   user.Id.String(),
			"cancelled": len(rows),
			"reason":    req.reason,
			"trigger":   req.eventType,
		})
	}
	return outcome, nil
}

// cancellableRows returns active rows first, then failed rows, so a paused
// subscription cannot be resumed by a renewal after it was cancelled.
func (m *Manager) cancellableRows(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) ([]*entity.Subscription, error) {
	rows, err := m.activeRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	failed, err := uow.SubscriptionRepository().FindByUserAndStatus(ctx, user.Id, entity.SubscriptionStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("find failed subscriptions: %w", err)
	}
	return append(rows, failed...), nil
}
