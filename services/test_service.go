package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
)

type TestService struct {
	db *gorm.DB
}

func NewTestService(db *gorm.DB) *TestService {
	return &TestService{db: db}
}

type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position"`
}

type QuestionInput struct {
	Text     string        `json:"text" validate:"required"`
	Type     string        `json:"type" validate:"required"`
	Points   int           `json:"points" validate:"gte=0"`
	Position int           `json:"position"`
	ImageURL *string       `json:"image_url"`
	Options  []OptionInput `json:"options" validate:"required,min=1,dive"`
}

type TestInput struct {
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	TimeLimitMinutes int             `json:"time_limit_minutes" validate:"gte=0"`
	PassingScore     int             `json:"passing_score" validate:"gte=0"`
	Questions        []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// Create persists a test with its questions and options in one transaction.
// Every question must carry at least one option marked correct; this is the
// guard that keeps an empty answer key (which would score vacuously) out of
// the data.
func (s *TestService) Create(input TestInput) (*models.Test, error) {
	for _, q := range input.Questions {
		switch q.Type {
		case models.QuestionTypeSingle, models.QuestionTypeMultiple, models.QuestionTypeText:
		default:
			return nil, ErrInvalidQuestionType
		}
		hasCorrect := false
		for _, opt := range q.Options {
			if opt.IsCorrect {
				hasCorrect = true
				break
			}
		}
		if !hasCorrect {
			return nil, ErrNoCorrectOption
		}
	}

	test := models.Test{
		Title:            input.Title,
		Description:      input.Description,
		TimeLimitMinutes: input.TimeLimitMinutes,
		PassingScore:     input.PassingScore,
	}
	for i, q := range input.Questions {
		question := models.Question{
			Text:     q.Text,
			Type:     q.Type,
			Points:   q.Points,
			Position: q.Position,
			ImageURL: q.ImageURL,
		}
		if question.Position == 0 {
			question.Position = i + 1
		}
		for j, opt := range q.Options {
			option := models.AnswerOption{
				Text:      opt.Text,
				IsCorrect: opt.IsCorrect,
				Position:  opt.Position,
			}
			if option.Position == 0 {
				option.Position = j + 1
			}
			question.Options = append(question.Options, option)
		}
		test.Questions = append(test.Questions, question)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&test).Error
	}); err != nil {
		return nil, err
	}
	return &test, nil
}

func (s *TestService) Get(testID uuid.UUID) (*models.Test, error) {
	var test models.Test
	err := s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.position ASC")
	}).Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("answer_options.position ASC")
	}).First(&test, "id = ?", testID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	return &test, nil
}

func (s *TestService) List() ([]models.Test, error) {
	var tests []models.Test
	if err := s.db.Order("created_at DESC").Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}
