package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attempt is one run of a user through a test. The partial unique index
// enforces at most one open attempt per (user, test) pair; a lost race on
// insert surfaces as a duplicate-key error and the caller re-reads the winner.
type Attempt struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_attempts_one_open,unique,where:is_completed = false" json:"user_id"`
	TestID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_attempts_one_open,unique,where:is_completed = false" json:"test_id"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	Score       int        `gorm:"not null;default:0" json:"score"`

	Test Test `gorm:"foreignKey:TestID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
