package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
)

// AttemptService owns the attempt lifecycle: NoAttempt -> InProgress ->
// Completed, with Complete as the sole terminal transition. All time-based
// decisions use the injected clock, never a client-supplied timestamp.
type AttemptService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAttemptService(db *gorm.DB) *AttemptService {
	return &AttemptService{db: db, now: time.Now}
}

type StartResult struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	StartTime time.Time `json:"start_time"`
	// RemainingSeconds is nil for untimed tests, floored at zero otherwise.
	RemainingSeconds *int `json:"remaining_seconds"`
	IsNewAttempt     bool `json:"is_new_attempt"`
}

type CompleteResult struct {
	Score   int       `json:"score"`
	EndTime time.Time `json:"end_time"`
}

// StartOrResume returns the user's open attempt for the test, creating one if
// none exists. Two concurrent calls cannot both insert: the partial unique
// index on open attempts rejects the loser, which then re-reads and returns
// the winner's attempt.
func (s *AttemptService) StartOrResume(userID, testID uuid.UUID) (*StartResult, error) {
	result, err := s.startOrResume(userID, testID)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		result, err = s.startOrResume(userID, testID)
	}
	return result, err
}

func (s *AttemptService) startOrResume(userID, testID uuid.UUID) (*StartResult, error) {
	now := s.now()
	var result *StartResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var test models.Test
		if err := tx.First(&test, "id = ?", testID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTestNotFound
			}
			return err
		}

		status, err := openAssignment(tx, userID, testID, now)
		if err != nil {
			return err
		}
		if !status.Assigned {
			if status.Exhausted {
				return ErrAssignmentExhausted
			}
			return ErrNotAssigned
		}
		if status.Deadline != nil && now.After(*status.Deadline) {
			return ErrDeadlinePassed
		}

		var attempt models.Attempt
		err = tx.Where("user_id = ? AND test_id = ? AND is_completed = ?", userID, testID, false).
			First(&attempt).Error
		switch {
		case err == nil:
			result = &StartResult{
				AttemptID:        attempt.ID,
				StartTime:        attempt.StartTime,
				RemainingSeconds: remainingSeconds(test, attempt.StartTime, now),
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			attempt = models.Attempt{UserID: userID, TestID: testID, StartTime: now}
			if err := tx.Create(&attempt).Error; err != nil {
				return err
			}
			result = &StartResult{
				AttemptID:        attempt.ID,
				StartTime:        now,
				RemainingSeconds: remainingSeconds(test, now, now),
				IsNewAttempt:     true,
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete finalizes an attempt: the score is recomputed from scratch against
// the live answer key (the per-answer correctness cache is advisory only),
// then score, end time and the completed flag are written in the same
// transaction as the reads. The guarded update makes completion exactly-once
// under concurrent submits.
func (s *AttemptService) Complete(attemptID uuid.UUID) (*CompleteResult, error) {
	now := s.now()
	var result *CompleteResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var attempt models.Attempt
		if err := tx.First(&attempt, "id = ?", attemptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttemptNotFound
			}
			return err
		}
		if attempt.IsCompleted {
			return ErrAlreadyCompleted
		}

		var questions []models.Question
		err := tx.Preload("Options").Where("test_id = ?", attempt.TestID).Find(&questions).Error
		if err != nil {
			return err
		}
		selections, err := savedAnswers(tx, attemptID)
		if err != nil {
			return err
		}

		total, scores := ScoreAttempt(questions, selections)
		for _, qs := range scores {
			if qs.KeyMissing {
				log.Printf("data integrity: question %s has no correct options, scored zero", qs.QuestionID)
			}
		}

		update := tx.Model(&models.Attempt{}).
			Where("id = ? AND is_completed = ?", attemptID, false).
			Updates(map[string]interface{}{"is_completed": true, "score": total, "end_time": now})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return ErrAlreadyCompleted
		}

		// One attempt per assignment: completing the attempt uses up the
		// matching open assignment, so a later start reports "exhausted"
		// instead of opening a fresh attempt.
		status, err := openAssignment(tx, attempt.UserID, attempt.TestID, now)
		if err != nil {
			return err
		}
		if status.Assigned {
			err := tx.Model(&models.Assignment{}).
				Where("id = ?", status.AssignmentID).
				Update("is_completed", true).Error
			if err != nil {
				return err
			}
		}

		result = &CompleteResult{Score: total, EndTime: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns an attempt by id, without any ownership check; callers enforce
// that the requesting user owns the attempt.
func (s *AttemptService) Get(attemptID uuid.UUID) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := s.db.First(&attempt, "id = ?", attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func remainingSeconds(test models.Test, start, now time.Time) *int {
	if test.TimeLimitMinutes <= 0 {
		return nil
	}
	remaining := test.TimeLimitMinutes*60 - int(now.Sub(start).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
