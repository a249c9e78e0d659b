package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/utils"
)

const maxActivityPageSize = 100

// ActivityHandler exposes the audit trail to tutors and administrators.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register binds the tutor's own activity route.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/activity", h.own)
}

// RegisterAdmin binds the unrestricted activity route under an admin group.
func (h *ActivityHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/activity", h.all)
}

func (h *ActivityHandler) own(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	req, err := activityListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ListForTutor(requestContext(c), tutor, req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load activity")
	}
	return utils.OK(c, result.Items, "activity", result.Pagination)
}

func (h *ActivityHandler) all(c *fiber.Ctx) error {
	req, err := activityListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actorID, err := parseQueryInt(c, "actor_id")
	if err != nil || actorID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor_id")
	}
	req.ActorID = uint(actorID)

	result, err := h.service.List(requestContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load activity")
	}
	return utils.OK(c, result.Items, "activity", result.Pagination)
}

func activityListRequest(c *fiber.Ctx) (dto.ActivityListRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil || page < 0 {
		return dto.ActivityListRequest{}, fiber.NewError(fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil || pageSize < 0 {
		return dto.ActivityListRequest{}, fiber.NewError(fiber.StatusBadRequest, "invalid page_size")
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 || pageSize > maxActivityPageSize {
		pageSize = 20
	}

	entityID, err := parseQueryInt(c, "entity_id")
	if err != nil || entityID < 0 {
		return dto.ActivityListRequest{}, fiber.NewError(fiber.StatusBadRequest, "invalid entity_id")
	}

	var since time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return dto.ActivityListRequest{}, fiber.NewError(fiber.StatusBadRequest, "since must be an RFC3339 timestamp")
		}
	}

	return dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   uint(entityID),
		Since:      since,
	}, nil
}
