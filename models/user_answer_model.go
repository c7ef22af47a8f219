package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAnswer records one selected option within an attempt. Single-choice
// questions keep a single row per (attempt, question); multiple-choice
// questions keep one row per selected option. IsCorrect is an advisory cache
// written at answer time; the authoritative score is recomputed from the
// answer key on completion.
type UserAnswer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answers_selection" json:"attempt_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answers_selection" json:"question_id"`
	OptionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answers_selection" json:"option_id"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *UserAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
