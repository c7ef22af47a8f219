package services

import (
	"errors"
	"testing"

	"github.com/ksenkov/testline/models"
)

func validTestInput() TestInput {
	return TestInput{
		Title:            "Fractions",
		TimeLimitMinutes: 20,
		PassingScore:     3,
		Questions: []QuestionInput{
			{
				Text:   "1/2 + 1/2 = ?",
				Type:   models.QuestionTypeSingle,
				Points: 3,
				Options: []OptionInput{
					{Text: "1", IsCorrect: true},
					{Text: "2"},
				},
			},
		},
	}
}

func TestCreateTest_RequiresACorrectOption(t *testing.T) {
	db := newTestDB(t)
	svc := NewTestService(db)

	input := validTestInput()
	input.Questions[0].Options = []OptionInput{{Text: "1"}, {Text: "2"}}

	_, err := svc.Create(input)
	if !errors.Is(err, ErrNoCorrectOption) {
		t.Fatalf("expected ErrNoCorrectOption, got %v", err)
	}

	var count int64
	if err := db.Model(&models.Test{}).Count(&count).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no test persisted after rejection, got %d", count)
	}
}

func TestCreateTest_RejectsUnknownQuestionType(t *testing.T) {
	db := newTestDB(t)
	svc := NewTestService(db)

	input := validTestInput()
	input.Questions[0].Type = "matching"

	_, err := svc.Create(input)
	if !errors.Is(err, ErrInvalidQuestionType) {
		t.Fatalf("expected ErrInvalidQuestionType, got %v", err)
	}
}

func TestCreateTest_PersistsQuestionsAndOptions(t *testing.T) {
	db := newTestDB(t)
	svc := NewTestService(db)

	created, err := svc.Create(validTestInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Title != "Fractions" || loaded.TimeLimitMinutes != 20 || loaded.PassingScore != 3 {
		t.Fatalf("test fields not persisted: %+v", loaded)
	}
	if len(loaded.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(loaded.Questions))
	}
	q := loaded.Questions[0]
	if len(q.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(q.Options))
	}
	if key := q.CorrectOptionIDs(); len(key) != 1 {
		t.Fatalf("expected a single-option key, got %v", key)
	}
	if q.Position != 1 {
		t.Fatalf("expected implicit position 1, got %d", q.Position)
	}
}
