package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	Id                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Phone               string         `gorm:"type:varchar(20);uniqueIndex;not null"`
	FullName            string         `gorm:"type:varchar(255);not null;default:''"`
	Role                string         `gorm:"type:varchar(50);not null;default:'user'"`
	FitnessLevel        string         `gorm:"type:varchar(50);not null;default:'beginner'"`
	FitnessGoal         string         `gorm:"type:varchar(100)"`
	Preferences         datatypes.JSON `gorm:"type:jsonb"`
	WorkoutsCompleted   int            `gorm:"default:0"`
	TotalWorkoutMinutes int            `gorm:"default:0"`
	CurrentStreak       int            `gorm:"default:0"`
	SubscriptionStatus  string         `gorm:"type:varchar(20);index"`
	SubscriptionPlan    string         `gorm:"type:varchar(20)"`
	SubscriptionEndDate *time.Time
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
