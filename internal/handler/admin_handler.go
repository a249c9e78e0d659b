package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/utils"
)

// AdminHandler serves administrator-only views.
type AdminHandler struct {
	auth   service.AuthService
	logger zerolog.Logger
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(auth service.AuthService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		auth:   auth,
		logger: logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register binds admin routes under a group guarded by RequireAdmin.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/tutors", h.tutors)
}

func (h *AdminHandler) tutors(c *fiber.Ctx) error {
	tutors, err := h.auth.ListTutors(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load tutors")
	}
	return utils.OK(c, tutors, "tutors", fiber.Map{"count": len(tutors)})
}
