package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/cropcare/middleware"
)

func (h *Handler) Me(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	user, err := h.auth.GetUser(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "User found", user)
}
