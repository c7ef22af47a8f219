package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuestionTypeSingle   = "single"
	QuestionTypeMultiple = "multiple"
	QuestionTypeText     = "text"
)

type Question struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"test_id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Type     string    `gorm:"size:20;not null;default:'single'" json:"type"`
	Points   int       `gorm:"not null;default:1" json:"points"`
	Position int       `gorm:"not null;default:0" json:"position"`
	ImageURL *string   `gorm:"size:255" json:"image_url,omitempty"`

	Options []AnswerOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// CorrectOptionIDs is the answer key for the question.
func (q *Question) CorrectOptionIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}
