package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/admin"
	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/auth"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/service"
)

type Deps struct {
	Auth      *auth.Service
	Images    *service.ImageService
	Diagnoses *service.DiagnosisService
	Gate      *admin.Gate
	Log       *logger.Logger

	SecureCookies bool
	CookieTTL     time.Duration
}

type Handler struct {
	auth      *auth.Service
	images    *service.ImageService
	diagnoses *service.DiagnosisService
	gate      *admin.Gate
	log       *logger.Logger

	secureCookies bool
	cookieTTL     time.Duration
}

func New(d Deps) *Handler {
	if d.CookieTTL == 0 {
		d.CookieTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		auth:          d.Auth,
		images:        d.Images,
		diagnoses:     d.Diagnoses,
		gate:          d.Gate,
		log:           d.Log.With("component", "http"),
		secureCookies: d.SecureCookies,
		cookieTTL:     d.CookieTTL,
	}
}

func Hello(c *fiber.Ctx) error {
	return c.SendString("Hello, World!")
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// fail renders err in the error envelope. Server-side failures are logged with their cause.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	e := apperr.As(err)
	if e.Status >= fiber.StatusInternalServerError {
		h.log.Error(e.Message, "method", c.Method(), "path", c.Path(), "error", e.Err)
	}
	return c.Status(e.Status).JSON(fiber.Map{
		"status":  "error",
		"message": e.Message,
		"data":    nil,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"message": "Unauthorized Request",
		"data":    nil,
	})
}

func imageIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("imageId"))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("Invalid image id")
	}
	return id, nil
}
