package handler

import (
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/utils"
)

const (
	submittedStudents = "students"
	rosterFileField   = "roster"
	maxRosterBytes    = 200 << 10
)

// StudentHandler serves the tutor's student directory.
type StudentHandler struct {
	service   service.StudentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(service service.StudentService, validate *validator.Validate, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register binds student routes under an authenticated tutor group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/students", h.list)
	router.Post("/students", h.change)
	router.Post("/students/:id/toggle-alert", h.toggleAlert)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	students, err := h.service.List(requestContext(c), tutor)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load students")
	}
	return utils.OK(c, students, "students", fiber.Map{"count": len(students)})
}

type studentSelection struct {
	Submitted string `json:"submitted" form:"submitted"`
	DeleteIDs []uint `json:"delete_ids" form:"-"`
}

// change imports pasted or uploaded roster text when any is given and then
// deletes the selected students when the student list form was submitted.
func (h *StudentHandler) change(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	var selection studentSelection
	if err := c.BodyParser(&selection); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student payload")
	}
	var req dto.ImportStudentsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student payload")
	}
	if isMultipart(c) {
		text, ferr := readRosterFile(c)
		if ferr != nil {
			return utils.SendError(c, ferr.Code, ferr.Message)
		}
		if text != "" {
			req.Text = text
		}
	}

	deleting := selection.Submitted == submittedStudents || len(selection.DeleteIDs) > 0
	importing := strings.TrimSpace(req.Text) != "" || !deleting

	ctx := requestContext(c)
	var response dto.StudentsChangeResponse

	if importing {
		if err := h.validator.Struct(req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		result, err := h.service.BulkAdd(ctx, tutor, req.Text)
		if err != nil {
			if result.Added > 0 || result.Skipped > 0 {
				response.Import = &result
			}
			return sendServiceErrorWithDetails(c, h.logger, err, "failed to import students", response)
		}
		response.Import = &result
	}

	if deleting {
		ids := selection.DeleteIDs
		if len(ids) == 0 {
			ids = prefixedIDs(c, "student_")
		}
		deleted, err := h.service.Delete(ctx, tutor, ids)
		if err != nil {
			return sendServiceErrorWithDetails(c, h.logger, err, "failed to delete students", response)
		}
		response.Deleted = deleted
	}

	switch {
	case importing && deleting:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "students imported and deleted", response)
	case importing:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "students imported", response)
	default:
		return utils.SendSuccess(c, "students deleted", response)
	}
}

// readRosterFile returns the text of an uploaded roster. A request without
// the file yields an empty string so the pasted text is used instead.
func readRosterFile(c *fiber.Ctx) (string, *fiber.Error) {
	header, err := c.FormFile(rosterFileField)
	if err != nil {
		return "", nil
	}
	if header.Size > maxRosterBytes {
		return "", fiber.NewError(fiber.StatusRequestEntityTooLarge, "roster file is too large")
	}

	file, err := header.Open()
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "roster file could not be read")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxRosterBytes))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "roster file could not be read")
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "text/") {
		return "", fiber.NewError(fiber.StatusUnsupportedMediaType, "roster must be a text file, got "+detected.String())
	}

	return string(data), nil
}

func (h *StudentHandler) toggleAlert(c *fiber.Ctx) error {
	tutor, err := middleware.RequiresAuth(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	id, ok := parseIDParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	student, err := h.service.ToggleAlert(requestContext(c), tutor, id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update student")
	}
	return utils.SendSuccess(c, "alert updated", student)
}
