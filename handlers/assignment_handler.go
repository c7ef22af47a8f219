package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksenkov/testline/models"
	"github.com/ksenkov/testline/notifications"
	"github.com/ksenkov/testline/services"
)

type AssignmentHandler struct {
	db          *gorm.DB
	assignments *services.AssignmentService
	tests       *services.TestService
}

func NewAssignmentHandler(db *gorm.DB, assignments *services.AssignmentService, tests *services.TestService) *AssignmentHandler {
	return &AssignmentHandler{db: db, assignments: assignments, tests: tests}
}

type AssignRequest struct {
	UserIDs  []string   `json:"user_ids" validate:"required,min=1,dive,uuid4"`
	Deadline *time.Time `json:"deadline"`
}

// Assign fans a test out to a batch of users. Already-assigned users are
// skipped, so the reported count can be lower than the request size.
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	testID, err := uuid.Parse(c.Params("testId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid test id"})
	}

	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id: " + raw})
		}
		userIDs = append(userIDs, id)
	}

	count, err := h.assignments.FanoutAssign(testID, userIDs, req.Deadline)
	if err != nil {
		return serviceError(c, err)
	}

	go h.notifyAssigned(testID, userIDs, req.Deadline)

	return c.JSON(fiber.Map{"assigned_count": count})
}

func (h *AssignmentHandler) notifyAssigned(testID uuid.UUID, userIDs []uuid.UUID, deadline *time.Time) {
	var test models.Test
	if err := h.db.First(&test, "id = ?", testID).Error; err != nil {
		return
	}
	var users []models.User
	if err := h.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return
	}

	due := "no deadline"
	if deadline != nil {
		due = deadline.Format("2006-01-02 15:04")
	}
	for _, user := range users {
		notifications.SendEmail(
			user.FullName,
			user.Email,
			fmt.Sprintf("You have been assigned the test %q", test.Title),
			fmt.Sprintf("<h1>New test assigned</h1><p>You have been assigned %q (due: %s).</p>", test.Title, due),
		)
	}
}
