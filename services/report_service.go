package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
)

type QuestionReport struct {
	QuestionID      uuid.UUID   `json:"question_id"`
	Text            string      `json:"text"`
	Type            string      `json:"type"`
	Points          int         `json:"points"`
	SelectedOptions []uuid.UUID `json:"selected_option_ids"`
	CorrectOptions  []uuid.UUID `json:"correct_option_ids"`
	Correct         bool        `json:"correct"`
	Earned          int         `json:"earned"`
}

type Report struct {
	AttemptID uuid.UUID        `json:"attempt_id"`
	TestID    uuid.UUID        `json:"test_id"`
	TestTitle string           `json:"test_title"`
	Score     int              `json:"score"`
	MaxScore  int              `json:"max_score"`
	Passed    bool             `json:"passed"`
	EndTime   *time.Time       `json:"end_time"`
	Questions []QuestionReport `json:"questions"`
}

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// GetResult builds the report for the user's best completed attempt (highest
// score, latest end time on ties). Correctness per question is recomputed
// from the ledger and the live key; the stored score stays authoritative, and
// a recomputation mismatch is logged as a data-integrity warning, never
// corrected here.
func (s *ReportService) GetResult(userID, testID uuid.UUID) (*Report, error) {
	var test models.Test
	if err := s.db.First(&test, "id = ?", testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}

	var attempt models.Attempt
	err := s.db.Where("user_id = ? AND test_id = ? AND is_completed = ?", userID, testID, true).
		Order("score DESC, end_time DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCompletedAttempt
		}
		return nil, err
	}

	var questions []models.Question
	err = s.db.Preload("Options").
		Where("test_id = ?", testID).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	selections, err := savedAnswers(s.db, attempt.ID)
	if err != nil {
		return nil, err
	}

	recomputed, scores := ScoreAttempt(questions, selections)
	if recomputed != attempt.Score {
		log.Printf("data integrity: attempt %s stored score %d differs from recomputed %d, keeping stored value",
			attempt.ID, attempt.Score, recomputed)
	}

	report := &Report{
		AttemptID: attempt.ID,
		TestID:    test.ID,
		TestTitle: test.Title,
		Score:     attempt.Score,
		Passed:    test.PassingScore <= 0 || attempt.Score >= test.PassingScore,
		EndTime:   attempt.EndTime,
	}
	for i, q := range questions {
		selected := selections[q.ID]
		if selected == nil {
			selected = []uuid.UUID{}
		}
		key := q.CorrectOptionIDs()
		if key == nil {
			key = []uuid.UUID{}
		}
		report.MaxScore += q.Points
		report.Questions = append(report.Questions, QuestionReport{
			QuestionID:      q.ID,
			Text:            q.Text,
			Type:            q.Type,
			Points:          q.Points,
			SelectedOptions: selected,
			CorrectOptions:  key,
			Correct:         scores[i].Correct,
			Earned:          scores[i].Earned,
		})
	}
	return report, nil
}
