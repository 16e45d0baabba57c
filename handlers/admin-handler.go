package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/cropcare/middleware"
)

type unlockInput struct {
	PIN string `json:"pin"`
}

func (h *Handler) UnlockAdmin(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	var input unlockInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	if err := h.gate.Unlock(c.UserContext(), userID, input.PIN); err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "Admin panel unlocked", fiber.Map{"unlocked": true})
}

func (h *Handler) LockAdmin(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.gate.Lock(c.UserContext(), userID); err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "Admin panel locked", fiber.Map{"unlocked": false})
}

func (h *Handler) AdminStats(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	stats, err := h.gate.Stats(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "Statistics loaded", stats)
}
