package contract

import (
	"context"
	"time"

	"fitness-billing-be/internal/entity"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *entity.Subscription) error
	Update(ctx context.Context, subscription *entity.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)
	FindByTransaction(ctx context.Context, phone, transactionId string) (*entity.Subscription, error)

	// FindByUserAndStatus returns matching rows, newest first.
	FindByUserAndStatus(ctx context.Context, userId uuid.UUID, status entity.SubscriptionStatus) ([]*entity.Subscription, error)
	FindHistory(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.Subscription, int64, error)

	// ExpireActiveBefore moves the user's active rows ending before cutoff to expired.
	ExpireActiveBefore(ctx context.Context, userId uuid.UUID, cutoff time.Time) (int64, error)

	// Audit trail (append only)
	AppendAuditEvent(ctx context.Context, event *entity.SubscriptionAuditEvent) error
	FindAuditTrail(ctx context.Context, subscriptionId uuid.UUID) ([]entity.SubscriptionAuditEvent, error)

	GetStats(ctx context.Context) (*entity.SubscriptionStats, error)
}
