package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/katakuxiko/luminarag/internal/logger"
	"github.com/katakuxiko/luminarag/internal/metrics"
)

func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Use(requestid.New())
	app.Use(requestLogger)

	app.Get("/health", h.Health)
	app.Get("/models", h.ListModels)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	s := app.Group("/sessions")
	s.Post("/", h.CreateSession)
	s.Delete("/:id", h.DeleteSession)
	s.Post("/:id/documents", h.UploadDocuments)
	s.Post("/:id/ask", h.Ask)
	s.Get("/:id/history", h.History)
	s.Post("/:id/reset", h.Reset)
}

// requestLogger puts a request-scoped logger on the user context.
func requestLogger(c *fiber.Ctx) error {
	l := slog.Default().With("request_id", c.Locals("requestid"))
	c.SetUserContext(logger.WithContext(c.UserContext(), l))

	start := time.Now()
	err := c.Next()
	l.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"took", time.Since(start))
	return err
}
