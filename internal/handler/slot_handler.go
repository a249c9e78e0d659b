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

const submittedCurrentTimes = "currentTimes"

// SlotHandler serves the tutor's slot pages.
type SlotHandler struct {
	service service.SlotService
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(service service.SlotService, logger zerolog.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		logger:  logger.With().Str("component", "slot_handler").Logger(),
		now:     time.Now,
	}
}

// Register binds slot routes under an authenticated tutor group.
func (h *SlotHandler) Register(router fiber.Router) {
	router.Get("/times", h.times)
	router.Post("/times", h.changeTimes)
	router.Post("/times/:id/toggle-attended", h.toggleAttended)
	router.Get("/view", h.today)
	router.Get("/history", h.history)
}

func (h *SlotHandler) times(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	ctx := requestContext(c)
	now := h.now()

	slots, err := h.service.Upcoming(ctx, tutor, now)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load slots")
	}
	suggestions, err := h.service.Suggestions(ctx, tutor, now)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load slot defaults")
	}

	return utils.OK(c, dto.TimesResponse{Slots: slots, Suggestions: suggestions}, "upcoming slots", fiber.Map{"count": len(slots)})
}

type slotSelection struct {
	Submitted string `json:"submitted" form:"submitted"`
	DeleteIDs []uint `json:"delete_ids" form:"-"`
}

// changeTimes creates a batch when a start time is given and then deletes
// the selected slots when the current times form was submitted. A POST with
// neither is treated as a create and fails validation.
func (h *SlotHandler) changeTimes(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	var selection slotSelection
	if err := c.BodyParser(&selection); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid slot payload")
	}
	var req dto.CreateSlotsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid slot payload")
	}

	deleting := selection.Submitted == submittedCurrentTimes || len(selection.DeleteIDs) > 0
	creating := strings.TrimSpace(req.Start) != "" || !deleting

	ctx := requestContext(c)
	var response dto.TimesChangeResponse

	if creating {
		created, err := h.service.Create(ctx, tutor, req)
		response.Created = created
		if err != nil {
			return sendServiceErrorWithDetails(c, h.logger, err, "failed to create slots", response)
		}
	}

	if deleting {
		ids := selection.DeleteIDs
		if len(ids) == 0 {
			ids = prefixedIDs(c, "slot_")
		}
		deleted, err := h.service.Delete(ctx, tutor, ids)
		if err != nil {
			return sendServiceErrorWithDetails(c, h.logger, err, "failed to delete slots", response)
		}
		response.Deleted = deleted
	}

	switch {
	case creating && deleting:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "slots created and deleted", response)
	case creating:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "slots created", response)
	default:
		return utils.SendSuccess(c, "slots deleted", response)
	}
}

func (h *SlotHandler) toggleAttended(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	id, ok := parseIDParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid slot id")
	}

	slot, err := h.service.ToggleAttended(requestContext(c), tutor, id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update slot")
	}
	return utils.SendSuccess(c, "attendance updated", slot)
}

func (h *SlotHandler) today(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	slots, err := h.service.Today(requestContext(c), tutor, h.now())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load slots")
	}
	return utils.OK(c, slots, "slots from today", fiber.Map{"count": len(slots)})
}

func (h *SlotHandler) history(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	slots, err := h.service.History(requestContext(c), tutor, h.now())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load history")
	}
	return utils.OK(c, slots, "past slots", fiber.Map{"count": len(slots)})
}
