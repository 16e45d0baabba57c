package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/session"
)

const (
	CookieName = "JWT"
	localsUser = "user"
	localsTok  = "token"
)

var ErrNotLoggedIn = errors.New("not logged in")

// TokenParser resolves a session token to the identity it was issued for.
type TokenParser interface {
	ParseToken(ctx context.Context, tokenStr string) (session.Identity, error)
}

func AuthMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := TokenFromRequest(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "You are not authorized!",
				"data":    nil,
			})
		}

		identity, err := tokens.ParseToken(c.UserContext(), tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid token",
				"data":    nil,
			})
		}

		c.Locals(localsUser, identity)
		c.Locals(localsTok, tokenStr)

		return c.Next()
	}
}

// TokenFromRequest prefers the Authorization header over the JWT cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok && after != "" {
		return strings.TrimSpace(after)
	}
	return c.Cookies(CookieName)
}

func CurrentUser(c *fiber.Ctx) (session.Identity, error) {
	identity, ok := c.Locals(localsUser).(session.Identity)
	if !ok || identity.UserID == uuid.Nil {
		return session.Identity{}, ErrNotLoggedIn
	}
	return identity, nil
}

func CheckUserLoggedIn(c *fiber.Ctx) (uuid.UUID, error) {
	identity, err := CurrentUser(c)
	if err != nil {
		return uuid.Nil, err
	}
	return identity.UserID, nil
}
