package handler

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// requestContext carries the correlation id into service calls.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func isJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEApplicationJSON)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEMultipartForm)
}

// formValue reads a field from either an urlencoded or a multipart body.
func formValue(c *fiber.Ctx, key string) string {
	if isJSON(c) {
		return ""
	}
	return strings.TrimSpace(c.FormValue(key))
}

// prefixedIDs collects the ids of checkbox style form fields such as
// "slot_12=on". Ids are returned sorted and without repeats.
func prefixedIDs(c *fiber.Ctx, prefix string) []uint {
	if isJSON(c) {
		return nil
	}

	seen := map[uint]struct{}{}
	collect := func(key string) {
		if !strings.HasPrefix(key, prefix) {
			return
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil || id == 0 {
			return
		}
		seen[uint(id)] = struct{}{}
	}

	if isMultipart(c) {
		if form, err := c.MultipartForm(); err == nil {
			for key := range form.Value {
				collect(key)
			}
		}
	} else {
		c.Request().PostArgs().VisitAll(func(key, _ []byte) {
			collect(string(key))
		})
	}

	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognised is logged and reported as fallback with a 500.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	return sendServiceErrorWithDetails(c, logger, err, fallback, nil)
}

// sendServiceErrorWithDetails is sendServiceError for operations that may
// have partly succeeded; details reports what was done before the failure.
func sendServiceErrorWithDetails(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string, details interface{}) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrTutorNotFound),
		errors.Is(err, service.ErrInvalidSignupToken):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidSlotTime),
		errors.Is(err, service.ErrTooManySlots),
		errors.Is(err, service.ErrNoRecipients):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnrecognisedRoster):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		log := middleware.RequestLogger(c, logger)
		log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.Fail(c, fiber.StatusInternalServerError, fallback, details)
	}
}
