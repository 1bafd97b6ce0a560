package lifecycle

import (
	"context"
	"fmt"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"
)

// mirrorUpdate describes the billing fields to copy onto the user.
// A nil EndDate keeps the stored value.
type mirrorUpdate struct {
	Status  entity.SubscriptionStatus
	Plan    billing.PlanType
	EndDate *time.Time
}

func (m *Manager) syncMirror(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User, upd mirrorUpdate) error {
	user.SubscriptionStatus = upd.Status
	if upd.Plan != "" {
		user.SubscriptionPlan = upd.Plan
	}
	if upd.EndDate != nil {
		end := *upd.EndDate
		user.SubscriptionEndDate = &end
	}
	if err := uow.UserRepository().UpdateSubscriptionMirror(ctx, user); err != nil {
		return fmt.Errorf("update billing mirror: %w", err)
	}
	return nil
}
