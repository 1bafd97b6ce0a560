package implementation

import (
	"context"
	"errors"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/mapper"
	"fitness-billing-be/internal/model"
	"fitness-billing-be/internal/repository/contract"
	"fitness-billing-be/internal/repository/scope"
	"fitness-billing-be/internal/repository/specification"
	"fitness-billing-be/pkg/billing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewSubscriptionRepository(db *gorm.DB) contract.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *SubscriptionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// phoneTransactionConflict targets idx_subscriptions_phone_txn. A conflict there
// does not abort the surrounding transaction.
var phoneTransactionConflict = clause.OnConflict{
	Columns:     []clause.Column{{Name: "phone"}, {Name: "aggregator_transaction_id"}},
	TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "aggregator_transaction_id <> ''"}}},
	DoNothing:   true,
}

// Create returns billing.ErrDuplicateTransaction when the (phone, transaction)
// pair is already recorded and billing.ErrActiveSubscriptionExists when the
// one-active-row index rejects the insert.
func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscription *entity.Subscription) error {
	m := r.mapper.ToModel(subscription)
	res := r.db.WithContext(ctx).Clauses(phoneTransactionConflict).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return billing.ErrActiveSubscriptionExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return billing.ErrDuplicateTransaction
	}
	*subscription = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscription *entity.Subscription) error {
	m := r.mapper.ToModel(subscription)
	if err := r.db.WithContext(ctx).Omit("AuditEvents").Save(m).Error; err != nil {
		return err
	}
	trail := subscription.AuditTrail
	*subscription = *r.mapper.ToEntity(m)
	subscription.AuditTrail = trail
	return nil
}

func (r *SubscriptionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *SubscriptionRepositoryImpl) FindByTransaction(ctx context.Context, phone, transactionId string) (*entity.Subscription, error) {
	if transactionId == "" {
		return nil, nil
	}
	return r.findOne(ctx, specification.ByTransaction{Phone: phone, TransactionID: transactionId})
}

func (r *SubscriptionRepositoryImpl) FindByUserAndStatus(ctx context.Context, userId uuid.UUID, status entity.SubscriptionStatus) ([]*entity.Subscription, error) {
	return r.findAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.StatusIs{Status: string(status)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}

func (r *SubscriptionRepositoryImpl) FindHistory(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.Subscription, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Scopes(specification.UserOwnedBy{UserID: userId}.Apply).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.UserOwnedBy{UserID: userId},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err := query.Scopes(scope.OrderByCreatedDesc).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return r.toEntities(models), total, nil
}

func (r *SubscriptionRepositoryImpl) ExpireActiveBefore(ctx context.Context, userId uuid.UUID, cutoff time.Time) (int64, error) {
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Subscription{}),
		specification.UserOwnedBy{UserID: userId},
		specification.StatusIs{Status: string(entity.SubscriptionStatusActive)},
		specification.EndsBefore{Cutoff: cutoff},
	)
	res := query.Update("status", string(entity.SubscriptionStatusExpired))
	return res.RowsAffected, res.Error
}

func (r *SubscriptionRepositoryImpl) AppendAuditEvent(ctx context.Context, event *entity.SubscriptionAuditEvent) error {
	m := r.mapper.AuditEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.AuditEventToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) FindAuditTrail(ctx context.Context, subscriptionId uuid.UUID) ([]entity.SubscriptionAuditEvent, error) {
	var models []*model.SubscriptionAuditEvent
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionId).
		Scopes(scope.OrderByCreatedAsc).
		Find(&models).Error; err != nil {
		return nil, err
	}
	events := make([]entity.SubscriptionAuditEvent, 0, len(models))
	for _, m := range models {
		events = append(events, *r.mapper.AuditEventToEntity(m))
	}
	return events, nil
}

// Stats

type countRow struct {
	Key   string
	Count int64
}

func (r *SubscriptionRepositoryImpl) GetStats(ctx context.Context) (*entity.SubscriptionStats, error) {
	stats := &entity.SubscriptionStats{
		ByStatus: make(map[entity.SubscriptionStatus]int64),
		ByPlan:   make(map[billing.PlanType]int64),
	}
	db := r.db.WithContext(ctx)

	var byStatus []countRow
	if err := db.Model(&model.Subscription{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[entity.SubscriptionStatus(row.Key)] = row.Count
		stats.TotalSubscriptions += row.Count
	}
	stats.ActiveSubscribers = stats.ByStatus[entity.SubscriptionStatusActive]

	var byPlan []countRow
	if err := db.Model(&model.Subscription{}).
		Select("plan_type AS key, COUNT(*) AS count").
		Group("plan_type").
		Scan(&byPlan).Error; err != nil {
		return nil, err
	}
	for _, row := range byPlan {
		stats.ByPlan[billing.PlanType(row.Key)] = row.Count
	}

	// Every renewal is a separate charge of the row's amount
	if err := db.Model(&model.Subscription{}).
		Where("status <> ?", string(entity.SubscriptionStatusPending)).
		Select("COALESCE(SUM(amount * (1 + renewal_count)), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *SubscriptionRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	var m model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SubscriptionRepositoryImpl) findAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	var models []*model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models), nil
}

func (r *SubscriptionRepositoryImpl) toEntities(models []*model.Subscription) []*entity.Subscription {
	entities := make([]*entity.Subscription, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities
}
