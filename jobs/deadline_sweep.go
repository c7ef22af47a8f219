package jobs

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
	"github.com/ksenkov/testline/services"
)

// DeadlineSweeper force-completes open attempts whose time limit or
// assignment deadline has expired, scoring whatever the ledger holds. Without
// it an abandoned attempt would stay open indefinitely, since remaining time
// is otherwise only checked on demand.
type DeadlineSweeper struct {
	db       *gorm.DB
	attempts *services.AttemptService
	now      func() time.Time
}

func NewDeadlineSweeper(db *gorm.DB, attempts *services.AttemptService) *DeadlineSweeper {
	return &DeadlineSweeper{db: db, attempts: attempts, now: time.Now}
}

func (s *DeadlineSweeper) Run() {
	now := s.now()

	var open []models.Attempt
	err := s.db.Preload("Test").Where("is_completed = ?", false).Find(&open).Error
	if err != nil {
		log.Printf("Error loading open attempts for sweep: %v", err)
		return
	}

	for _, attempt := range open {
		if !s.overdue(attempt, now) {
			continue
		}
		_, err := s.attempts.Complete(attempt.ID)
		if err != nil && !errors.Is(err, services.ErrAlreadyCompleted) {
			log.Printf("Error force-completing overdue attempt %s: %v", attempt.ID, err)
			continue
		}
		log.Printf("Force-completed overdue attempt %s", attempt.ID)
	}
}

func (s *DeadlineSweeper) overdue(attempt models.Attempt, now time.Time) bool {
	if attempt.Test.TimeLimitMinutes > 0 {
		limit := time.Duration(attempt.Test.TimeLimitMinutes) * time.Minute
		if now.After(attempt.StartTime.Add(limit)) {
			return true
		}
	}

	var assignments []models.Assignment
	err := s.db.Where("user_id = ? AND test_id = ? AND is_completed = ?",
		attempt.UserID, attempt.TestID, false).Find(&assignments).Error
	if err != nil {
		log.Printf("Error loading assignments for sweep: %v", err)
		return false
	}
	if len(assignments) == 0 {
		return false
	}
	// An expired row does not end the attempt while a later open assignment
	// still covers the pair.
	for _, a := range assignments {
		if a.Deadline == nil || !now.After(*a.Deadline) {
			return false
		}
	}
	return true
}
