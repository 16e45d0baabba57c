package router

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	handler "github.com/krishkalaria12/cropcare/handlers"
	"github.com/krishkalaria12/cropcare/middleware"
	"github.com/krishkalaria12/cropcare/storage"
)

type Options struct {
	// UploadsDir is served under /uploads when images are kept on local disk.
	UploadsDir string
	AccessLog  bool
}

func SetupRoutes(app *fiber.App, h *handler.Handler, tokens middleware.TokenParser, opts Options) {
	app.Use(recover.New())
	app.Get("/", handler.Hello)

	if opts.UploadsDir != "" {
		app.Static(storage.PublicPrefix, opts.UploadsDir)
	}

	api := app.Group("/api")
	if opts.AccessLog {
		api.Use(fiberlogger.New())
	}
	authed := middleware.AuthMiddleware(tokens)

	// Auth
	auth := api.Group("/auth")
	auth.Post("/signup", h.SignUp)
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)
	auth.Get("/me", authed, h.Me)

	// Scans
	api.Post("/images", authed, h.UploadImage)
	api.Get("/history", authed, h.History)
	api.Delete("/history/:imageId", authed, h.DeleteImage)
	api.Get("/results/:imageId", authed, h.Results)

	// Admin
	admin := api.Group("/admin")
	admin.Post("/unlock", authed, h.UnlockAdmin)
	admin.Post("/lock", authed, h.LockAdmin)
	admin.Get("/stats", authed, h.AdminStats)
}
