package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/hookline/hookline/pkg/auth"
)

const identityKey = "identity.user_id"

// Authenticate verifies the bearer token and stores the caller's user
// id in the request locals.
func Authenticate(verifier *auth.Verifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		identity, err := verifier.VerifyHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err.Error())
		}

		c.Locals(identityKey, identity.UserID)

		return c.Next()
	}
}

func currentUserID(c fiber.Ctx) string {
	userID, _ := c.Locals(identityKey).(string)

	return userID
}
