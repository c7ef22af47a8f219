package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ksenkov/testline/handlers"
	"github.com/ksenkov/testline/middleware"
)

func ExamRoutes(app *fiber.App, tests *handlers.TestHandler, assignments *handlers.AssignmentHandler, exams *handlers.ExamHandler) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin/tests", middleware.Protected(), middleware.InstructorRequired())
	admin.Post("", tests.CreateTest)
	admin.Get("", tests.ListTests)
	admin.Get("/:testId", tests.GetTest)
	admin.Post("/:testId/assign", assignments.Assign)

	student := api.Group("", middleware.Protected())
	student.Get("/tests", exams.ListAssignedTests)
	student.Post("/tests/:testId/attempt", exams.StartOrResumeAttempt)
	student.Get("/tests/:testId/result", exams.GetResult)
	student.Get("/attempts/:attemptId/answers", exams.GetSavedAnswers)
	student.Put("/attempts/:attemptId/answers/:questionId", exams.RecordAnswer)
	student.Post("/attempts/:attemptId/complete", exams.CompleteAttempt)
}
