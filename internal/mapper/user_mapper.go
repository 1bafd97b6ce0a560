package mapper

import (
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/model"
	"fitness-billing-be/pkg/billing"

	"gorm.io/datatypes"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:                  u.Id,
		Phone:               u.Phone,
		FullName:            u.FullName,
		Role:                entity.UserRole(u.Role),
		FitnessLevel:        u.FitnessLevel,
		FitnessGoal:         u.FitnessGoal,
		Preferences:         []byte(u.Preferences),
		WorkoutsCompleted:   u.WorkoutsCompleted,
		TotalWorkoutMinutes: u.TotalWorkoutMinutes,
		CurrentStreak:       u.CurrentStreak,
		SubscriptionStatus:  entity.SubscriptionStatus(u.SubscriptionStatus),
		SubscriptionPlan:    billing.PlanType(u.SubscriptionPlan),
		SubscriptionEndDate: u.SubscriptionEndDate,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	var prefs datatypes.JSON
	if len(u.Preferences) > 0 {
		prefs = datatypes.JSON(u.Preferences)
	}
	return &model.User{
		Id:                  u.Id,
		Phone:               u.Phone,
		FullName:            u.FullName,
		Role:                string(u.Role),
		FitnessLevel:        u.FitnessLevel,
		FitnessGoal:         u.FitnessGoal,
		Preferences:         prefs,
		WorkoutsCompleted:   u.WorkoutsCompleted,
		TotalWorkoutMinutes: u.TotalWorkoutMinutes,
		CurrentStreak:       u.CurrentStreak,
		SubscriptionStatus:  string(u.SubscriptionStatus),
		SubscriptionPlan:    string(u.SubscriptionPlan),
		SubscriptionEndDate: u.SubscriptionEndDate,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}
