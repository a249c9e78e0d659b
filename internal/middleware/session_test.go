package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/session"
)

type tutorStub map[uint]models.Tutor

func (s tutorStub) GetByID(_ context.Context, id uint) (models.Tutor, error) {
	tutor, ok := s[id]
	if !ok {
		return models.Tutor{}, gorm.ErrRecordNotFound
	}
	return tutor, nil
}

func newSessionApp(manager *session.Manager, tutors tutorStub, guards ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Session(manager, tutors, zerolog.Nop()))

	handlers := append([]fiber.Handler{}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		tutor, err := middleware.RequiresAuth(c)
		if err != nil {
			return c.Status(fiber.StatusOK).SendString("anonymous")
		}
		return c.Status(fiber.StatusOK).SendString(tutor.Email)
	})
	app.Get("/", handlers...)
	return app
}

func requestWithCookie(t *testing.T, app *fiber.App, manager *session.Manager, value string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: value})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func issue(t *testing.T, manager *session.Manager, tutor models.Tutor) string {
	t.Helper()
	value, _, err := manager.Issue(tutor)
	require.NoError(t, err)
	return value
}

func TestSessionResolvesTutor(t *testing.T) {
	manager := session.NewManager("secret", time.Hour, "")
	tutor := models.Tutor{ID: 3, Email: "tutor@example.com"}
	app := newSessionApp(manager, tutorStub{3: tutor}, middleware.RequireTutor())

	resp := requestWithCookie(t, app, manager, issue(t, manager, tutor))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireTutorRejectsAnonymous(t *testing.T) {
	manager := session.NewManager("secret", time.Hour, "")
	app := newSessionApp(manager, tutorStub{}, middleware.RequireTutor())

	resp := requestWithCookie(t, app, manager, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionDiscardsChangedEmail(t *testing.T) {
	manager := session.NewManager("secret", time.Hour, "")
	issued := models.Tutor{ID: 3, Email: "old@example.com"}
	app := newSessionApp(manager, tutorStub{3: {ID: 3, Email: "new@example.com"}}, middleware.RequireTutor())

	resp := requestWithCookie(t, app, manager, issue(t, manager, issued))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var cleared bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == manager.CookieName() && cookie.Value == "" {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestSessionIgnoresTamperedCookie(t *testing.T) {
	manager := session.NewManager("secret", time.Hour, "")
	forged := session.NewManager("other", time.Hour, "")
	tutor := models.Tutor{ID: 3, Email: "tutor@example.com"}
	app := newSessionApp(manager, tutorStub{3: tutor})

	resp := requestWithCookie(t, app, manager, issue(t, forged, tutor))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "anonymous", string(body))
}

func TestRequireAdmin(t *testing.T) {
	manager := session.NewManager("secret", time.Hour, "")
	admin := models.Tutor{ID: 1, Email: "admin@example.com", IsAdmin: true}
	tutor := models.Tutor{ID: 2, Email: "tutor@example.com"}
	app := newSessionApp(manager, tutorStub{1: admin, 2: tutor}, middleware.RequireAdmin())

	tests := []struct {
		name   string
		cookie string
		status int
	}{
		{name: "admin", cookie: issue(t, manager, admin), status: fiber.StatusOK},
		{name: "tutor", cookie: issue(t, manager, tutor), status: fiber.StatusForbidden},
		{name: "anonymous", cookie: "", status: fiber.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := requestWithCookie(t, app, manager, tc.cookie)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRequiresAuthWithoutSession(t *testing.T) {
	_, err := middleware.RequiresAuth(nil)
	require.ErrorIs(t, err, middleware.ErrUnauthorized)
}
