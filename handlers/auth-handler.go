package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/cropcare/auth"
	"github.com/krishkalaria12/cropcare/middleware"
)

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignUp(c *fiber.Ctx) error {
	var input auth.SignUpInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	sess, err := h.auth.SignUp(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err)
	}

	h.setSessionCookie(c, sess.Token)
	return respond(c, fiber.StatusCreated, "Account created", sess)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	sess, err := h.auth.SignIn(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return h.fail(c, err)
	}

	h.setSessionCookie(c, sess.Token)
	return respond(c, fiber.StatusOK, "Login successful", sess)
}

// Logout always clears the cookie. A valid token is revoked and its sign-out announced.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if tokenStr := middleware.TokenFromRequest(c); tokenStr != "" {
		if err := h.auth.SignOut(c.UserContext(), tokenStr); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			return h.fail(c, err)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
	})

	return respond(c, fiber.StatusOK, "Logout successful", nil)
}

func (h *Handler) setSessionCookie(c *fiber.Ctx, tokenStr string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    tokenStr,
		Expires:  time.Now().Add(h.cookieTTL),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
	})
}
