package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ksenkov/testline/handlers"
)

func AuthRoutes(app *fiber.App, auth *handlers.AuthHandler) {
	api := app.Group("/api/v1")

	group := api.Group("/auth")
	group.Post("/register", auth.Register)
	group.Post("/login", auth.Login)
}
