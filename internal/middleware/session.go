package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/session"
)

const tutorLocalsKey = "tutor"

// ErrUnauthorized is returned by RequiresAuth when no tutor is logged in.
var ErrUnauthorized = errors.New("authentication required")

// TutorLoader resolves the tutor named by a session cookie.
type TutorLoader interface {
	GetByID(ctx context.Context, id uint) (models.Tutor, error)
}

// Session loads the tutor identified by the session cookie, if any. Requests
// without a valid cookie continue anonymously; guards decide what to reject.
func Session(manager *session.Manager, tutors TutorLoader, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value := c.Cookies(manager.CookieName())
		if value == "" {
			return c.Next()
		}

		claims, err := manager.Parse(value)
		if err != nil {
			ClearSessionCookie(c, manager)
			return c.Next()
		}

		tutor, err := tutors.GetByID(c.UserContext(), claims.TutorID)
		if err != nil || models.NormaliseEmail(tutor.Email) != models.NormaliseEmail(claims.Email) {
			logger.Debug().
				Err(err).
				Str("correlation_id", GetCorrelationID(c)).
				Uint("tutor_id", claims.TutorID).
				Msg("discarding stale session")
			ClearSessionCookie(c, manager)
			return c.Next()
		}

		c.Locals(tutorLocalsKey, tutor)
		c.Locals("user_id", tutor.ID)
		c.Locals("user_role", tutor.Role())
		return c.Next()
	}
}

// SetSessionCookie stores a freshly issued session for tutor.
func SetSessionCookie(c *fiber.Ctx, manager *session.Manager, tutor models.Tutor, secure bool) error {
	value, expires, err := manager.Issue(tutor)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     manager.CookieName(),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx, manager *session.Manager) {
	c.Cookie(&fiber.Cookie{
		Name:     manager.CookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// RequiresAuth returns the logged-in tutor or ErrUnauthorized.
func RequiresAuth(c *fiber.Ctx) (models.Tutor, error) {
	if c == nil {
		return models.Tutor{}, ErrUnauthorized
	}
	tutor, ok := c.Locals(tutorLocalsKey).(models.Tutor)
	if !ok || tutor.ID == 0 {
		return models.Tutor{}, ErrUnauthorized
	}
	return tutor, nil
}
