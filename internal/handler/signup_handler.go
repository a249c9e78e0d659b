package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/utils"
)

// SignupHandler serves the student signup pages. The token in the path is
// the only credential.
type SignupHandler struct {
	service     service.BookingService
	signupLimit fiber.Handler
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSignupHandler constructs a signup handler. signupLimit guards bookings
// and may be nil.
func NewSignupHandler(service service.BookingService, signupLimit fiber.Handler, logger zerolog.Logger) *SignupHandler {
	if signupLimit == nil {
		signupLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &SignupHandler{
		service:     service,
		signupLimit: signupLimit,
		logger:      logger.With().Str("component", "signup_handler").Logger(),
		now:         time.Now,
	}
}

// Register binds the signup routes.
func (h *SignupHandler) Register(router fiber.Router) {
	router.Get("/:token", h.options)
	router.Post("/:token", h.signupLimit, h.book)
}

func (h *SignupHandler) options(c *fiber.Ctx) error {
	page, err := h.service.Options(requestContext(c), c.Params("token"), h.now())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load slots")
	}
	return utils.SendSuccess(c, "available slots", page)
}

func (h *SignupHandler) book(c *fiber.Ctx) error {
	slotID, ok := bookingSlotID(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "choose a slot to book")
	}

	result, err := h.service.Book(requestContext(c), c.Params("token"), slotID, h.now())
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignupToken) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return sendServiceError(c, h.logger, err, "failed to book slot")
	}

	if result.Status == dto.BookingStatusUnavailable {
		return utils.Fail(c, fiber.StatusConflict, "sorry, that slot has just been taken", result)
	}

	message := "slot booked"
	if !result.EmailSent {
		message = "slot booked, but the confirmation email could not be sent"
	}
	return utils.SendSuccess(c, message, result)
}

// bookingSlotID reads the slot from a JSON body or from the first "slot_<id>"
// form field.
func bookingSlotID(c *fiber.Ctx) (uint, bool) {
	if isJSON(c) {
		var req dto.BookRequest
		if err := c.BodyParser(&req); err != nil || req.SlotID == 0 {
			return 0, false
		}
		return req.SlotID, true
	}

	if raw := formValue(c, "slot_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return uint(id), true
	}

	ids := prefixedIDs(c, "slot_")
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}
