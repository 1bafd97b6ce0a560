package implementation

import (
	"context"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/mapper"
	"fitness-billing-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventReceiptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewEventReceiptRepository(db *gorm.DB) contract.EventReceiptRepository {
	return &EventReceiptRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *EventReceiptRepositoryImpl) Claim(ctx context.Context, receipt *entity.BillingEventReceipt) (bool, error) {
	m := r.mapper.ReceiptToModel(receipt)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	receipt.Id = m.Id
	return true, nil
}
