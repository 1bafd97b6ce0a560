package lifecycle

import (
	"context"
	"fmt"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/unitofwork"
)

// Fail applies a billing failure. Access is paused, not ended: end dates stay
// as they are so a later renewal can resume the row.
func (m *Manager) Fail(ctx context.Context, uow unitofwork.UnitOfWork, n Notification) (*Outcome, error) {
	user, err := m.requireUserByPhone(ctx, uow, n.Phone)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{User: user}

	rows, err := m.activeRows(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	note := n.Type
	if n.StatusMessage != "" {
		note = n.StatusMessage
	}
	for _, row := range rows {
		row.Status = entity.SubscriptionStatusFailed
		row.TelcoStatusCode = n.StatusCode
		row.TelcoStatusMessage = n.StatusMessage
		if err := uow.SubscriptionRepository().Update(ctx, row); err != nil {
			return nil, fmt.Errorf("mark subscription failed: %w", err)
		}
		if err := m.audit(ctx, uow, row, n.Type, n.TransactionRef, n.Raw, note); err != nil {
			return nil, err
		}
		outcome.Affected = append(outcome.Affected, row)
	}
	if len(rows) > 0 {
		outcome.Subscription = rows[0]
	}

	if err := m.syncMirror(ctx, uow, user, mirrorUpdate{Status: entity.SubscriptionStatusFailed}); err != nil {
		return nil, err
	}

	m.logger.Warn(module, "Billing failed", map[string]interface{}{
		"user_id":     user.Id.String(),
		"type":        n.Type,
		"status_code": n.StatusCode,
		"affected":    len(rows),
	})
	return outcome, nil
}
