package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/session"
	"github.com/noah-isme/exeats-api/internal/utils"
)

// AuthHandler serves login, logout and tutor settings.
type AuthHandler struct {
	service       service.AuthService
	sessions      *session.Manager
	secureCookies bool
	loginLimit    fiber.Handler
	logger        zerolog.Logger
}

// NewAuthHandler constructs an auth handler. loginLimit guards POST /login
// and may be nil.
func NewAuthHandler(service service.AuthService, sessions *session.Manager, secureCookies bool, loginLimit fiber.Handler, logger zerolog.Logger) *AuthHandler {
	if loginLimit == nil {
		loginLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &AuthHandler{
		service:       service,
		sessions:      sessions,
		secureCookies: secureCookies,
		loginLimit:    loginLimit,
		logger:        logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the public session routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Get("/login", h.status)
	router.Post("/login", h.loginLimit, h.login)
	router.Get("/logout", h.logout)
}

// RegisterSettings binds the settings routes under an authenticated group.
func (h *AuthHandler) RegisterSettings(router fiber.Router) {
	router.Get("/settings", h.settings)
	router.Post("/settings", h.updateSettings)
}

func (h *AuthHandler) status(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendSuccess(c, "not logged in", dto.SessionResponse{})
	}
	response := dto.NewTutorResponse(tutor)
	return utils.SendSuccess(c, "logged in", dto.SessionResponse{Authenticated: true, Tutor: &response})
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid login payload")
	}

	tutor, err := h.service.Login(requestContext(c), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return sendServiceError(c, h.logger, err, "failed to log in")
	}

	if err := middleware.SetSessionCookie(c, h.sessions, tutor, h.secureCookies); err != nil {
		return sendServiceError(c, h.logger, err, "failed to start session")
	}

	response := dto.NewTutorResponse(tutor)
	return utils.SendSuccess(c, "logged in", dto.SessionResponse{Authenticated: true, Tutor: &response})
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	middleware.ClearSessionCookie(c, h.sessions)
	return utils.SendSuccess(c, "logged out", dto.SessionResponse{})
}

func (h *AuthHandler) settings(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	return utils.SendSuccess(c, "tutor settings", dto.NewTutorResponse(tutor))
}

func (h *AuthHandler) updateSettings(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid settings payload")
	}

	updated, err := h.service.UpdateName(requestContext(c), tutor, req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update settings")
	}
	return utils.SendSuccess(c, "settings updated", updated)
}
