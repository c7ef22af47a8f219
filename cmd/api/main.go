package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	config "github.com/ksenkov/testline/configs"
	"github.com/ksenkov/testline/database"
	"github.com/ksenkov/testline/handlers"
	"github.com/ksenkov/testline/jobs"
	"github.com/ksenkov/testline/notifications"
	"github.com/ksenkov/testline/routes"
	"github.com/ksenkov/testline/services"
)

func main() {
	db, err := database.Connect(config.Config("DATABASE_URL"))
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}
	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("🔥 Failed to seed admin user: %v", err)
	}
	notifications.InitEmailService()

	assignmentService := services.NewAssignmentService(db)
	attemptService := services.NewAttemptService(db)
	answerService := services.NewAnswerService(db)
	reportService := services.NewReportService(db)
	testService := services.NewTestService(db)

	sweeper := jobs.NewDeadlineSweeper(db, attemptService)
	c := cron.New()
	c.AddFunc("*/5 * * * *", sweeper.Run)
	go c.Start()
	log.Println("✅ Deadline sweep scheduled")

	app := fiber.New(fiber.Config{
		AppName:       "Testline",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	authHandler := handlers.NewAuthHandler(db)
	testHandler := handlers.NewTestHandler(testService)
	assignmentHandler := handlers.NewAssignmentHandler(db, assignmentService, testService)
	examHandler := handlers.NewExamHandler(db, assignmentService, attemptService, answerService, reportService)

	routes.AuthRoutes(app, authHandler)
	routes.ExamRoutes(app, testHandler, assignmentHandler, examHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	log.Println("✅ Server is running on port 8080")
	if err := app.Listen(":8080"); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
