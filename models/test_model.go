package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Test struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`

	// 0 means the test is untimed.
	TimeLimitMinutes int `gorm:"not null;default:0" json:"time_limit_minutes"`
	// 0 means no pass mark is configured; every completed attempt passes.
	PassingScore int `gorm:"not null;default:0" json:"passing_score"`

	Questions []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Test) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
