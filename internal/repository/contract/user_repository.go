package contract

import (
	"context"

	"fitness-billing-be/internal/entity"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByPhone(ctx context.Context, phone string) (*entity.User, error)

	// UpdateSubscriptionMirror writes only the billing mirror columns.
	UpdateSubscriptionMirror(ctx context.Context, user *entity.User) error
}
