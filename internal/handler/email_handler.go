package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/utils"
)

// EmailHandler serves the invitation page.
type EmailHandler struct {
	service service.InvitationService
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEmailHandler constructs an invitation handler.
func NewEmailHandler(service service.InvitationService, logger zerolog.Logger) *EmailHandler {
	return &EmailHandler{
		service: service,
		logger:  logger.With().Str("component", "email_handler").Logger(),
		now:     time.Now,
	}
}

// Register binds invitation routes under an authenticated tutor group.
func (h *EmailHandler) Register(router fiber.Router) {
	router.Get("/emails", h.overview)
	router.Post("/emails", h.send)
}

func (h *EmailHandler) overview(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	overview, err := h.service.Overview(requestContext(c), tutor, h.now())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load students")
	}
	return utils.OK(c, overview, "invitation overview", fiber.Map{"count": len(overview.Students)})
}

func (h *EmailHandler) send(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	var req dto.InvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid invitation payload")
	}
	if len(req.StudentIDs) == 0 {
		req.StudentIDs = prefixedIDs(c, "student_")
	}

	result, err := h.service.Send(requestContext(c), tutor, req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to send invitations")
	}

	message := "invitations sent"
	if result.Failed > 0 {
		message = "some invitations may not have been delivered"
	}
	return utils.SendSuccess(c, message, result)
}
