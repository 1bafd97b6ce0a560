package entity

import (
	"time"

	"fitness-billing-be/pkg/billing"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"

	DefaultFitnessLevel = "beginner"
	DefaultFitnessGoal  = "general_fitness"
)

type User struct {
	Id       uuid.UUID
	Phone    string
	FullName string
	Role     UserRole

	// Fitness profile
	FitnessLevel string
	FitnessGoal  string
	Preferences  []byte // JSON

	// Stats
	WorkoutsCompleted   int
	TotalWorkoutMinutes int
	CurrentStreak       int

	// Billing mirror, kept in lockstep with the subscription ledger
	SubscriptionStatus  SubscriptionStatus
	SubscriptionPlan    billing.PlanType
	SubscriptionEndDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscriberUser builds the minimal user created on a first billing event.
func NewSubscriberUser(phone string) *User {
	return &User{
		Id:           uuid.New(),
		Phone:        phone,
		Role:         UserRoleUser,
		FitnessLevel: DefaultFitnessLevel,
		FitnessGoal:  DefaultFitnessGoal,
		Preferences:  []byte(`{"notifications":true,"workout_reminders":true}`),
	}
}
