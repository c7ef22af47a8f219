package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
)

type AssignmentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db, now: time.Now}
}

// AssignmentStatus distinguishes "never assigned" (neither flag set) from
// "assigned but every assignment is used up" (Exhausted), so callers can
// explain "already finished" vs "not given to you".
type AssignmentStatus struct {
	Assigned     bool
	Exhausted    bool
	AssignmentID uuid.UUID
	Deadline     *time.Time
}

func (s *AssignmentService) IsOpenAssignment(userID, testID uuid.UUID) (AssignmentStatus, error) {
	return openAssignment(s.db, userID, testID, s.now())
}

// openAssignment picks the open assignment that authorizes work on the pair:
// the earliest-deadline row still live at now, with deadline-less rows
// sorting last. An expired row only wins when nothing live is open, so the
// caller reports the passed deadline instead of shadowing a later grant.
// Runs inside the caller's transaction when invoked from the attempt state
// machine.
func openAssignment(tx *gorm.DB, userID, testID uuid.UUID, now time.Time) (AssignmentStatus, error) {
	var open []models.Assignment
	err := tx.Where("user_id = ? AND test_id = ? AND is_completed = ?", userID, testID, false).
		Find(&open).Error
	if err != nil {
		return AssignmentStatus{}, err
	}
	if len(open) == 0 {
		var done int64
		err := tx.Model(&models.Assignment{}).
			Where("user_id = ? AND test_id = ? AND is_completed = ?", userID, testID, true).
			Count(&done).Error
		if err != nil {
			return AssignmentStatus{}, err
		}
		return AssignmentStatus{Exhausted: done > 0}, nil
	}

	live := func(a models.Assignment) bool {
		return a.Deadline == nil || !now.After(*a.Deadline)
	}
	pick := open[0]
	for _, a := range open[1:] {
		if live(a) != live(pick) {
			if live(a) {
				pick = a
			}
			continue
		}
		if a.Deadline == nil {
			continue
		}
		if pick.Deadline == nil || a.Deadline.Before(*pick.Deadline) {
			pick = a
		}
	}
	return AssignmentStatus{Assigned: true, AssignmentID: pick.ID, Deadline: pick.Deadline}, nil
}

// FanoutAssign hands a test out to a batch of users in one transaction.
// Users who already hold an open assignment are skipped, not errors; users
// whose assignments are all completed get a fresh one, which is how an
// instructor grants a re-attempt. Returns the number of assignments created.
func (s *AssignmentService) FanoutAssign(testID uuid.UUID, userIDs []uuid.UUID, deadline *time.Time) (int, error) {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var test models.Test
		if err := tx.First(&test, "id = ?", testID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTestNotFound
			}
			return err
		}

		var existing []models.Assignment
		if len(userIDs) > 0 {
			err := tx.Where("test_id = ? AND is_completed = ? AND user_id IN ?", testID, false, userIDs).
				Find(&existing).Error
			if err != nil {
				return err
			}
		}
		skip := make(map[uuid.UUID]bool, len(existing))
		for _, a := range existing {
			skip[a.UserID] = true
		}

		var batch []models.Assignment
		for _, userID := range userIDs {
			if skip[userID] {
				continue
			}
			skip[userID] = true
			batch = append(batch, models.Assignment{TestID: testID, UserID: userID, Deadline: deadline})
		}
		if len(batch) == 0 {
			return nil
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
		created = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// ListForUser returns a user's assignments with their tests, open first.
func (s *AssignmentService) ListForUser(userID uuid.UUID) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.Preload("Test").
		Where("user_id = ?", userID).
		Order("is_completed ASC, created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
