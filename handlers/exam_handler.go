package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
	"github.com/ksenkov/testline/notifications"
	"github.com/ksenkov/testline/services"
)

// ExamHandler is the student-facing surface of the attempt engine.
type ExamHandler struct {
	db          *gorm.DB
	assignments *services.AssignmentService
	attempts    *services.AttemptService
	answers     *services.AnswerService
	reports     *services.ReportService
}

func NewExamHandler(db *gorm.DB, assignments *services.AssignmentService, attempts *services.AttemptService,
	answers *services.AnswerService, reports *services.ReportService) *ExamHandler {
	return &ExamHandler{
		db:          db,
		assignments: assignments,
		attempts:    attempts,
		answers:     answers,
		reports:     reports,
	}
}

type AssignedTestResponse struct {
	TestID           uuid.UUID  `json:"test_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
}

func (h *ExamHandler) ListAssignedTests(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	assignments, err := h.assignments.ListForUser(userID)
	if err != nil {
		return serviceError(c, err)
	}

	tests := make([]AssignedTestResponse, 0, len(assignments))
	for _, a := range assignments {
		tests = append(tests, AssignedTestResponse{
			TestID:           a.TestID,
			Title:            a.Test.Title,
			Description:      a.Test.Description,
			TimeLimitMinutes: a.Test.TimeLimitMinutes,
			Deadline:         a.Deadline,
			IsCompleted:      a.IsCompleted,
		})
	}
	return c.JSON(tests)
}

func (h *ExamHandler) StartOrResumeAttempt(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	testID, err := uuid.Parse(c.Params("testId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid test id"})
	}

	result, err := h.attempts.StartOrResume(userID, testID)
	if err != nil {
		return serviceError(c, err)
	}

	status := fiber.StatusOK
	if result.IsNewAttempt {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

type RecordAnswerRequest struct {
	// Selection is either one option id or an array of option ids, matching
	// the question's type.
	Selection json.RawMessage `json:"selection" validate:"required"`
}

func (h *ExamHandler) RecordAnswer(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt id"})
	}
	questionID, err := uuid.Parse(c.Params("questionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid question id"})
	}

	var req RecordAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	selection, err := parseSelection(req.Selection)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.requireOwnership(attemptID, userID); err != nil {
		return serviceError(c, err)
	}
	if err := h.answers.RecordAnswer(attemptID, questionID, selection); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "saved"})
}

func (h *ExamHandler) GetSavedAnswers(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt id"})
	}

	if err := h.requireOwnership(attemptID, userID); err != nil {
		return serviceError(c, err)
	}
	answers, err := h.answers.GetSavedAnswers(attemptID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"answers": answers})
}

func (h *ExamHandler) CompleteAttempt(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt id"})
	}

	if err := h.requireOwnership(attemptID, userID); err != nil {
		return serviceError(c, err)
	}
	result, err := h.attempts.Complete(attemptID)
	if err != nil {
		return serviceError(c, err)
	}

	go h.notifyCompleted(attemptID, userID, result.Score)

	return c.JSON(result)
}

func (h *ExamHandler) GetResult(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	testID, err := uuid.Parse(c.Params("testId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid test id"})
	}

	report, err := h.reports.GetResult(userID, testID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(report)
}

// requireOwnership hides other users' attempts behind a not-found, the same
// answer a caller gets for an attempt that never existed.
func (h *ExamHandler) requireOwnership(attemptID, userID uuid.UUID) error {
	attempt, err := h.attempts.Get(attemptID)
	if err != nil {
		return err
	}
	if attempt.UserID != userID {
		return services.ErrAttemptNotFound
	}
	return nil
}

func (h *ExamHandler) notifyCompleted(attemptID, userID uuid.UUID, score int) {
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return
	}
	var attempt models.Attempt
	if err := h.db.Preload("Test").First(&attempt, "id = ?", attemptID).Error; err != nil {
		return
	}
	notifications.SendEmail(
		user.FullName,
		user.Email,
		fmt.Sprintf("Your result for %q", attempt.Test.Title),
		fmt.Sprintf("<h1>Test completed</h1><p>You scored <b>%d</b> on %q.</p>", score, attempt.Test.Title),
	)
}

func parseSelection(raw json.RawMessage) (services.Selection, error) {
	if len(raw) == 0 {
		return services.Selection{}, errors.New("selection is required")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		id, err := uuid.Parse(single)
		if err != nil {
			return services.Selection{}, errors.New("selection is not a valid option id")
		}
		return services.SingleSelection(id), nil
	}

	var multiple []string
	if err := json.Unmarshal(raw, &multiple); err == nil {
		ids := make([]uuid.UUID, 0, len(multiple))
		for _, s := range multiple {
			id, err := uuid.Parse(s)
			if err != nil {
				return services.Selection{}, errors.New("selection contains an invalid option id")
			}
			ids = append(ids, id)
		}
		return services.MultipleSelection(ids), nil
	}

	return services.Selection{}, errors.New("selection must be an option id or an array of option ids")
}
