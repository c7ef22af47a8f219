package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksenkov/testline/database"
	"github.com/ksenkov/testline/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		FullName: "Test Student",
		Email:    uuid.NewString() + "@example.com",
		Password: "irrelevant",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// seedTest creates a two-question test: Q1 is single-choice worth 3 points
// with options A (correct) and B; Q2 is multiple-choice worth 4 points with
// options X and Y correct and Z wrong.
func seedTest(t *testing.T, db *gorm.DB, timeLimitMinutes, passingScore int) models.Test {
	t.Helper()
	test := models.Test{
		Title:            "Sample Test",
		TimeLimitMinutes: timeLimitMinutes,
		PassingScore:     passingScore,
		Questions: []models.Question{
			{
				Text:     "Q1",
				Type:     models.QuestionTypeSingle,
				Points:   3,
				Position: 1,
				Options: []models.AnswerOption{
					{Text: "A", IsCorrect: true, Position: 1},
					{Text: "B", Position: 2},
				},
			},
			{
				Text:     "Q2",
				Type:     models.QuestionTypeMultiple,
				Points:   4,
				Position: 2,
				Options: []models.AnswerOption{
					{Text: "X", IsCorrect: true, Position: 1},
					{Text: "Y", IsCorrect: true, Position: 2},
					{Text: "Z", Position: 3},
				},
			},
		},
	}
	if err := db.Create(&test).Error; err != nil {
		t.Fatalf("failed to seed test: %v", err)
	}
	return test
}

func seedAssignment(t *testing.T, db *gorm.DB, testID, userID uuid.UUID, deadline *time.Time) models.Assignment {
	t.Helper()
	assignment := models.Assignment{TestID: testID, UserID: userID, Deadline: deadline}
	if err := db.Create(&assignment).Error; err != nil {
		t.Fatalf("failed to seed assignment: %v", err)
	}
	return assignment
}

func question(t *testing.T, test models.Test, text string) models.Question {
	t.Helper()
	for _, q := range test.Questions {
		if q.Text == text {
			return q
		}
	}
	t.Fatalf("question %q not found in test", text)
	return models.Question{}
}

func option(t *testing.T, q models.Question, text string) uuid.UUID {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Text == text {
			return opt.ID
		}
	}
	t.Fatalf("option %q not found in question %q", text, q.Text)
	return uuid.Nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
