package service

import (
	"context"
	"fmt"

	"fitness-billing-be/internal/dto"
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"
	billingEvents "fitness-billing-be/pkg/billing/events"
	"fitness-billing-be/pkg/billing/lifecycle"

	"github.com/google/uuid"
)

const subscriptionModule = "SUBSCRIPTION"

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

type ISubscriptionService interface {
	// HasActiveSubscription is the only accessor for the access decision.
	// A mirror that is still active past its end date is expired on the spot.
	HasActiveSubscription(ctx context.Context, userId uuid.UUID) (bool, error)
	GetUserSubscription(ctx context.Context, userId uuid.UUID) (*dto.UserSubscriptionResponse, error)
	CancelSubscription(ctx context.Context, userId uuid.UUID, reason string) error
	GetSubscriptionHistory(ctx context.Context, userId uuid.UUID, limit, offset int) (*dto.SubscriptionHistoryResponse, error)
	GetSubscriptionStats(ctx context.Context) (*dto.SubscriptionStatsResponse, error)
}

type subscriptionService struct {
	uowFactory unitofwork.RepositoryFactory
	manager    *lifecycle.Manager
	publisher  billingEvents.Publisher
	logger     logger.ILogger
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	manager *lifecycle.Manager,
	publisher billingEvents.Publisher,
	logger logger.ILogger,
) ISubscriptionService {
	if publisher == nil {
		publisher = billingEvents.NopPublisher{}
	}
	return &subscriptionService{
		uowFactory: uowFactory,
		manager:    manager,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *subscriptionService) HasActiveSubscription(ctx context.Context, userId uuid.UUID) (bool, error) {
	user, err := s.currentUser(ctx, userId)
	if err != nil {
		return false, err
	}
	return user.SubscriptionStatus == entity.SubscriptionStatusActive, nil
}

// currentUser loads the user and applies lazy expiry.
func (s *subscriptionService) currentUser(ctx context.Context, userId uuid.UUID) (*entity.User, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, billing.ErrUserNotFound
	}
	if !s.manager.IsExpired(user) {
		return user, nil
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.Lock(ctx, user.Phone); err != nil {
		return nil, fmt.Errorf("lock phone: %w", err)
	}
	// A webhook may have renewed while we waited for the lock
	user, err = uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, billing.ErrUserNotFound
	}
	if !s.manager.IsExpired(user) {
		return user, nil
	}

	if _, err := s.manager.Expire(ctx, uow, user); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info(subscriptionModule, "Subscription expired on read", map[string]interface{}{
		"user_id": userId.String(),
	})
	s.publisher.PublishSubscriptionExpired(ctx, user)
	return user, nil
}

func (s *subscriptionService) GetUserSubscription(ctx context.Context, userId uuid.UUID) (*dto.UserSubscriptionResponse, error) {
	user, err := s.currentUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	active, err := uow.SubscriptionRepository().FindByUserAndStatus(ctx, userId, entity.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}

	res := &dto.UserSubscriptionResponse{User: toSubscriberResponse(user)}
	if len(active) > 0 {
		res.ActiveSubscription = toSubscriptionResponse(active[0])
	}
	return res, nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, userId uuid.UUID, reason string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return err
	}
	if user == nil {
		return billing.ErrUserNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.Lock(ctx, user.Phone); err != nil {
		return fmt.Errorf("lock phone: %w", err)
	}
	outcome, err := s.manager.Cancel(ctx, uow, userId, reason)
	if err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info(subscriptionModule, "User cancelled subscription", map[string]interface{}{
		"user_id": userId.String(),
		"reason":  reason,
	})
	s.publisher.PublishSubscriptionCancelled(ctx, outcome.User, outcome.Subscription, "user")
	return nil
}

func (s *subscriptionService) GetSubscriptionHistory(ctx context.Context, userId uuid.UUID, limit, offset int) (*dto.SubscriptionHistoryResponse, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, total, err := uow.SubscriptionRepository().FindHistory(ctx, userId, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SubscriptionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSubscriptionResponse(row))
	}
	return &dto.SubscriptionHistoryResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *subscriptionService) GetSubscriptionStats(ctx context.Context) (*dto.SubscriptionStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	stats, err := uow.SubscriptionRepository().GetStats(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.SubscriptionStatsResponse{
		TotalSubscriptions: stats.TotalSubscriptions,
		ActiveSubscribers:  stats.ActiveSubscribers,
		TotalRevenue:       stats.TotalRevenue,
		ByStatus:           make(map[string]int64, len(stats.ByStatus)),
		PlanDistribution:   make(map[string]int64, len(stats.ByPlan)),
	}
	for status, count := range stats.ByStatus {
		res.ByStatus[string(status)] = count
	}
	for plan, count := range stats.ByPlan {
		res.PlanDistribution[string(plan)] = count
	}
	return res, nil
}

func toSubscriberResponse(u *entity.User) dto.SubscriberResponse {
	return dto.SubscriberResponse{
		Id:                  u.Id,
		Phone:               u.Phone,
		FullName:            u.FullName,
		SubscriptionStatus:  string(u.SubscriptionStatus),
		SubscriptionPlan:    string(u.SubscriptionPlan),
		SubscriptionEndDate: u.SubscriptionEndDate,
	}
}

func toSubscriptionResponse(s *entity.Subscription) *dto.SubscriptionResponse {
	return &dto.SubscriptionResponse{
		Id:                      s.Id,
		PlanType:                string(s.PlanType),
		Amount:                  s.Amount,
		Status:                  string(s.Status),
		Channel:                 string(s.Channel),
		Telco:                   string(s.Telco),
		Phone:                   s.Phone,
		StartDate:               s.StartDate,
		EndDate:                 s.EndDate,
		AutoRenewal:             s.AutoRenewal,
		RenewalCount:            s.RenewalCount,
		AggregatorTransactionId: s.AggregatorTransactionId,
		CancelledAt:             s.CancelledAt,
		CancellationReason:      s.CancellationReason,
		TelcoStatusCode:         s.TelcoStatusCode,
		TelcoStatusMessage:      s.TelcoStatusMessage,
		CreatedAt:               s.CreatedAt,
	}
}
