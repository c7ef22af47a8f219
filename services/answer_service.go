package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ksenkov/testline/models"
)

// Selection is the tagged payload of a recorded answer: exactly one shape is
// set, and it must match the question's stored type. Single and free-text
// questions take one option id; multiple-choice questions take a set.
type Selection struct {
	Single   *uuid.UUID
	Multiple []uuid.UUID
}

func SingleSelection(optionID uuid.UUID) Selection {
	return Selection{Single: &optionID}
}

func MultipleSelection(optionIDs []uuid.UUID) Selection {
	if optionIDs == nil {
		optionIDs = []uuid.UUID{}
	}
	return Selection{Multiple: optionIDs}
}

// AnswerService is the answer ledger: the mutable record of a user's selected
// options per question while the attempt is in progress.
type AnswerService struct {
	db *gorm.DB
}

func NewAnswerService(db *gorm.DB) *AnswerService {
	return &AnswerService{db: db}
}

// RecordAnswer persists one answer. Single-choice answers overwrite any prior
// row for the question; multiple-choice answers replace the whole prior set
// (delete-then-insert), so re-submission is idempotent and deselected options
// do not linger. Option ids that do not belong to the question are silently
// dropped to tolerate stale client state.
//
// Concurrent writes to the same attempt (the same user in two tabs) serialize
// on the attempt row, so the later replace always sees the earlier one's rows
// and last-writer-wins holds. A lost race that still slips through the unique
// ledger index is retried once instead of reaching the caller.
func (s *AnswerService) RecordAnswer(attemptID, questionID uuid.UUID, selection Selection) error {
	err := s.recordAnswer(attemptID, questionID, selection)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = s.recordAnswer(attemptID, questionID, selection)
	}
	return err
}

func (s *AnswerService) recordAnswer(attemptID, questionID uuid.UUID, selection Selection) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// SQLite's single writer already orders the transactions; Postgres
		// needs the row lock.
		attemptTx := tx
		if tx.Dialector.Name() == "postgres" {
			attemptTx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var attempt models.Attempt
		if err := attemptTx.First(&attempt, "id = ?", attemptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttemptNotFound
			}
			return err
		}
		if attempt.IsCompleted {
			return ErrAttemptClosed
		}

		var question models.Question
		err := tx.Preload("Options").
			First(&question, "id = ? AND test_id = ?", questionID, attempt.TestID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return err
		}

		correct := make(map[uuid.UUID]bool, len(question.Options))
		for _, opt := range question.Options {
			correct[opt.ID] = opt.IsCorrect
		}

		if question.Type == models.QuestionTypeMultiple {
			if selection.Multiple == nil {
				return ErrInvalidSelection
			}
			var rows []models.UserAnswer
			seen := make(map[uuid.UUID]bool, len(selection.Multiple))
			for _, optionID := range selection.Multiple {
				isCorrect, known := correct[optionID]
				if !known || seen[optionID] {
					continue
				}
				seen[optionID] = true
				rows = append(rows, models.UserAnswer{
					AttemptID:  attemptID,
					QuestionID: questionID,
					OptionID:   optionID,
					IsCorrect:  isCorrect,
				})
			}
			err := tx.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
				Delete(&models.UserAnswer{}).Error
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			return tx.Create(&rows).Error
		}

		if selection.Single == nil {
			return ErrInvalidSelection
		}
		optionID := *selection.Single
		isCorrect, known := correct[optionID]
		if !known {
			return nil
		}

		var existing models.UserAnswer
		err = tx.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
			First(&existing).Error
		switch {
		case err == nil:
			existing.OptionID = optionID
			existing.IsCorrect = isCorrect
			return tx.Save(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.UserAnswer{
				AttemptID:  attemptID,
				QuestionID: questionID,
				OptionID:   optionID,
				IsCorrect:  isCorrect,
			}).Error
		default:
			return err
		}
	})
}

// GetSavedAnswers returns the recorded answers grouped by question, for
// resuming a partially answered attempt.
func (s *AnswerService) GetSavedAnswers(attemptID uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	var attempt models.Attempt
	if err := s.db.First(&attempt, "id = ?", attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return savedAnswers(s.db, attemptID)
}

func savedAnswers(tx *gorm.DB, attemptID uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	var rows []models.UserAnswer
	err := tx.Where("attempt_id = ?", attemptID).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	answers := make(map[uuid.UUID][]uuid.UUID, len(rows))
	for _, row := range rows {
		answers[row.QuestionID] = append(answers[row.QuestionID], row.OptionID)
	}
	return answers, nil
}
