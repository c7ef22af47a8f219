package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Assignment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TestID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_assignments_pair" json:"test_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_assignments_pair" json:"user_id"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`

	Test Test `gorm:"foreignKey:TestID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
