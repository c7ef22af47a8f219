package services

import "errors"

// Business-rule rejections returned to callers. Handlers map these to
// specific HTTP statuses; anything else is a server error.
var (
	ErrTestNotFound        = errors.New("test not found")
	ErrNotAssigned         = errors.New("test is not assigned to this user")
	ErrAssignmentExhausted = errors.New("all assignments for this test are completed")
	ErrDeadlinePassed      = errors.New("assignment deadline has passed")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptClosed       = errors.New("attempt is already completed")
	ErrAlreadyCompleted    = errors.New("attempt has already been completed")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrInvalidSelection    = errors.New("selection shape does not match question type")
	ErrNoCompletedAttempt  = errors.New("no completed attempt for this test")
	ErrNoCorrectOption     = errors.New("question must have at least one correct option")
	ErrInvalidQuestionType = errors.New("unknown question type")
)
