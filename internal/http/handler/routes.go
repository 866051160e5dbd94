package handler

import (
	"github.com/gofiber/fiber/v2"

	"filevault/internal/service"
)

const uploadPath = "/api/upload"

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// protect runs in order before every /api route (authentication, then rate limiting).
func RegisterRoutes(app *fiber.App, db Pinger, fileSvc service.FileService, protect ...fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api", protect...)
	api.Post("/upload", Upload(fileSvc))
	api.Get("/download/:filename", Download(fileSvc))
	api.Get("/file-content/:filename", FileContent(fileSvc))
	api.Get("/files", ListFiles(fileSvc))
}
