package lifecycle

import (
	"context"
	"fmt"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/unitofwork"
)

// IsExpired reports whether the mirror still says active after its end date.
func (m *Manager) IsExpired(user *entity.User) bool {
	if user.SubscriptionStatus != entity.SubscriptionStatusActive {
		return false
	}
	return user.SubscriptionEndDate != nil && !user.SubscriptionEndDate.After(m.now())
}

// Expire downgrades a lapsed mirror and every active row whose cycle ended.
func (m *Manager) Expire(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) (*Outcome, error) {
	now := m.now()
	outcome := &Outcome{User: user}

	rows, err := m.activeRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.EndDate.After(now) {
			continue
		}
		if err := m.audit(ctx, uow, row, AuditLazyExpiry, "", nil, "cycle ended"); err != nil {
			return nil, err
		}
		row.Status = entity.SubscriptionStatusExpired
		outcome.Affected = append(outcome.Affected, row)
	}
	if len(outcome.Affected) > 0 {
		expired, err := uow.SubscriptionRepository().ExpireActiveBefore(ctx, user.Id, now.Add(1))
		if err != nil {
			return nil, fmt.Errorf("expire subscriptions: %w", err)
		}
		m.logger.Info(module, "Expired lapsed subscriptions", map[string]interface{}{
			"user_id": user.Id.String(),
			"expired": expired,
		})
		outcome.Subscription = outcome.Affected[0]
	}

	if err := m.syncMirror(ctx, uow, user, mirrorUpdate{Status: entity.SubscriptionStatusExpired}); err != nil {
		return nil, err
	}
	return outcome, nil
}
