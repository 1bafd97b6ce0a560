package unitofwork

import (
	"context"

	"fitness-billing-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	// Lock serializes work on key until the current transaction ends.
	Lock(ctx context.Context, key string) error

	UserRepository() contract.UserRepository
	SubscriptionRepository() contract.SubscriptionRepository
	EventReceiptRepository() contract.EventReceiptRepository
}
