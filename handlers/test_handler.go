package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ksenkov/testline/models"
	"github.com/ksenkov/testline/services"
)

// TestHandler is the instructor-facing authoring surface.
type TestHandler struct {
	tests *services.TestService
}

func NewTestHandler(tests *services.TestService) *TestHandler {
	return &TestHandler{tests: tests}
}

func (h *TestHandler) CreateTest(c *fiber.Ctx) error {
	var req services.TestInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	test, err := h.tests.Create(req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(test)
}

func (h *TestHandler) ListTests(c *fiber.Ctx) error {
	tests, err := h.tests.List()
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(tests)
}

type QuestionWithKey struct {
	models.Question
	CorrectOptionIDs []uuid.UUID `json:"correct_option_ids"`
}

// GetTest returns a test with its answer key. Option correctness is never
// serialized on the model itself, so only this instructor view exposes it.
func (h *TestHandler) GetTest(c *fiber.Ctx) error {
	testID, err := uuid.Parse(c.Params("testId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid test id"})
	}

	test, err := h.tests.Get(testID)
	if err != nil {
		return serviceError(c, err)
	}

	questions := make([]QuestionWithKey, 0, len(test.Questions))
	for _, q := range test.Questions {
		questions = append(questions, QuestionWithKey{Question: q, CorrectOptionIDs: q.CorrectOptionIDs()})
	}
	return c.JSON(fiber.Map{
		"id":                 test.ID,
		"title":              test.Title,
		"description":        test.Description,
		"time_limit_minutes": test.TimeLimitMinutes,
		"passing_score":      test.PassingScore,
		"questions":          questions,
	})
}
