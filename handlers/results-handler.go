package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/cropcare/middleware"
)

func (h *Handler) Results(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	imageID, err := imageIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}

	result, err := h.diagnoses.Results(c.UserContext(), userID, imageID)
	if err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "Results loaded", result)
}
