package services

import (
	"github.com/google/uuid"

	"github.com/ksenkov/testline/models"
)

// QuestionScore is the scoring outcome for one question of an attempt.
type QuestionScore struct {
	QuestionID uuid.UUID
	Answered   bool
	Correct    bool
	Points     int
	Earned     int
	// KeyMissing flags a question whose answer key has no correct options.
	// Question creation rejects such questions, so this is bad data; the
	// question scores zero and the caller logs a data-integrity warning.
	KeyMissing bool
}

// ScoreQuestion applies the exact-set-match rule: the question earns its full
// point value iff the selected option set equals the correct option set,
// member for member. No partial credit.
func ScoreQuestion(q models.Question, selected []uuid.UUID) QuestionScore {
	score := QuestionScore{
		QuestionID: q.ID,
		Answered:   len(selected) > 0,
		Points:     q.Points,
	}
	key := q.CorrectOptionIDs()
	if len(key) == 0 {
		score.KeyMissing = true
		return score
	}
	if equalIDSets(selected, key) {
		score.Correct = true
		score.Earned = q.Points
	}
	return score
}

// ScoreAttempt scores every question of a test against the recorded
// selections, unanswered questions included. Summation is exact integer
// addition.
func ScoreAttempt(questions []models.Question, selections map[uuid.UUID][]uuid.UUID) (int, []QuestionScore) {
	total := 0
	results := make([]QuestionScore, 0, len(questions))
	for _, q := range questions {
		score := ScoreQuestion(q, selections[q.ID])
		total += score.Earned
		results = append(results, score)
	}
	return total, results
}

func equalIDSets(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[uuid.UUID]int{}
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
