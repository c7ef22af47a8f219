package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
)

func startAttempt(t *testing.T, db *gorm.DB, userID, testID uuid.UUID) uuid.UUID {
	t.Helper()
	svc := NewAttemptService(db)
	svc.now = fixedClock(baseTime)
	started, err := svc.StartOrResume(userID, testID)
	if err != nil {
		t.Fatalf("failed to start attempt: %v", err)
	}
	return started.AttemptID
}

func TestRecordAnswer_SingleOverwrites(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	q1 := question(t, test, "Q1")

	if err := answers.RecordAnswer(attemptID, q1.ID, SingleSelection(option(t, q1, "A"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := answers.RecordAnswer(attemptID, q1.ID, SingleSelection(option(t, q1, "B"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := answers.GetSavedAnswers(attemptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := saved[q1.ID]
	if len(got) != 1 || got[0] != option(t, q1, "B") {
		t.Fatalf("expected exactly option B saved, got %v", got)
	}

	var rows int64
	if err := db.Model(&models.UserAnswer{}).Where("attempt_id = ?", attemptID).Count(&rows).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single ledger row after overwrite, got %d", rows)
	}
}

func TestRecordAnswer_MultipleReplacesNotMerges(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	q2 := question(t, test, "Q2")
	optX, optY, optZ := option(t, q2, "X"), option(t, q2, "Y"), option(t, q2, "Z")

	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection([]uuid.UUID{optX, optY})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection([]uuid.UUID{optZ})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := answers.GetSavedAnswers(attemptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := saved[q2.ID]
	if len(got) != 1 || got[0] != optZ {
		t.Fatalf("expected exactly {Z} after replacement, got %v", got)
	}
}

func TestRecordAnswer_RetriesWhenReplaceCollides(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	q2 := question(t, test, "Q2")
	optX, optY, optZ := option(t, q2, "X"), option(t, q2, "Y"), option(t, q2, "Z")

	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection([]uuid.UUID{optX, optY})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A replace that loses a race trips the ledger's unique index; the
	// conflict must roll back, retry and land the new set, not surface.
	inserts := 0
	err := db.Callback().Create().Before("gorm:create").Register("collide_once", func(tx *gorm.DB) {
		if tx.Statement.Table != "user_answers" {
			return
		}
		inserts++
		if inserts == 1 {
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection([]uuid.UUID{optZ})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserts != 2 {
		t.Fatalf("expected the insert to run twice, ran %d times", inserts)
	}

	saved, err := answers.GetSavedAnswers(attemptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := saved[q2.ID]
	if len(got) != 1 || got[0] != optZ {
		t.Fatalf("expected exactly {Z} after the retried replace, got %v", got)
	}
}

func TestRecordAnswer_EmptySetClearsAnswer(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	q2 := question(t, test, "Q2")

	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection([]uuid.UUID{option(t, q2, "X")})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := answers.GetSavedAnswers(attemptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved[q2.ID]) != 0 {
		t.Fatalf("expected no saved answer after deselecting everything, got %v", saved[q2.ID])
	}
}

func TestRecordAnswer_UnknownOptionsSilentlyDropped(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	q1 := question(t, test, "Q1")
	q2 := question(t, test, "Q2")

	// stale option id on a multiple-choice question: only the known one lands
	if err := answers.RecordAnswer(attemptID, q2.ID, MultipleSelection([]uuid.UUID{option(t, q2, "X"), uuid.New()})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// stale option id on a single-choice question: a no-op, not an error
	if err := answers.RecordAnswer(attemptID, q1.ID, SingleSelection(uuid.New())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := answers.GetSavedAnswers(attemptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := saved[q2.ID]; len(got) != 1 || got[0] != option(t, q2, "X") {
		t.Fatalf("expected only the known option saved, got %v", got)
	}
	if len(saved[q1.ID]) != 0 {
		t.Fatalf("expected no saved answer for q1, got %v", saved[q1.ID])
	}
}

func TestRecordAnswer_SelectionShapeValidated(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	q1 := question(t, test, "Q1")
	q2 := question(t, test, "Q2")

	err := answers.RecordAnswer(attemptID, q1.ID, MultipleSelection([]uuid.UUID{option(t, q1, "A")}))
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection for a set on a single-choice question, got %v", err)
	}
	err = answers.RecordAnswer(attemptID, q2.ID, SingleSelection(option(t, q2, "X")))
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection for a scalar on a multiple-choice question, got %v", err)
	}
}

func TestRecordAnswer_QuestionMustBelongToAttemptTest(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	test := seedTest(t, db, 0, 0)
	other := seedTest(t, db, 0, 0)
	seedAssignment(t, db, test.ID, user.ID, nil)
	attemptID := startAttempt(t, db, user.ID, test.ID)

	answers := NewAnswerService(db)
	foreign := question(t, other, "Q1")

	err := answers.RecordAnswer(attemptID, foreign.ID, SingleSelection(option(t, foreign, "A")))
	if !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound for a question from another test, got %v", err)
	}

	err = answers.RecordAnswer(uuid.New(), foreign.ID, SingleSelection(option(t, foreign, "A")))
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}
