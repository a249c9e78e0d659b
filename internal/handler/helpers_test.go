package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testTutor() models.Tutor {
	return models.Tutor{ID: 7, Name: "Dr Tutor", Email: "tutor@example.com"}
}

// newTutorApp returns an app whose requests run as tutor.
func newTutorApp(tutor *models.Tutor) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if tutor != nil {
			c.Locals("tutor", *tutor)
			c.Locals("user_id", tutor.ID)
			c.Locals("user_role", tutor.Role())
		}
		return c.Next()
	})
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(values.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type stubAuthService struct {
	tutor    models.Tutor
	err      error
	lastReq  dto.LoginRequest
	renamed  string
	listResp []dto.TutorResponse
}

func (s *stubAuthService) Login(_ context.Context, req dto.LoginRequest) (models.Tutor, error) {
	s.lastReq = req
	if s.err != nil {
		return models.Tutor{}, s.err
	}
	return s.tutor, nil
}

func (s *stubAuthService) UpdateName(_ context.Context, tutor models.Tutor, req dto.SettingsRequest) (dto.TutorResponse, error) {
	if s.err != nil {
		return dto.TutorResponse{}, s.err
	}
	s.renamed = req.Name
	tutor.Name = req.Name
	return dto.NewTutorResponse(tutor), nil
}

func (s *stubAuthService) ListTutors(context.Context) ([]dto.TutorResponse, error) {
	return s.listResp, s.err
}

type stubSlotService struct {
	created     dto.CreateSlotsRequest
	createCount int
	deletedIDs  []uint
	toggleErr   error
	upcoming    []dto.SlotResponse
	suggestion  dto.SlotSuggestion
	err         error
}

func (s *stubSlotService) Create(_ context.Context, _ models.Tutor, req dto.CreateSlotsRequest) (int, error) {
	s.created = req
	return s.createCount, s.err
}

func (s *stubSlotService) Delete(_ context.Context, _ models.Tutor, ids []uint) (int64, error) {
	s.deletedIDs = ids
	return int64(len(ids)), s.err
}

func (s *stubSlotService) Upcoming(context.Context, models.Tutor, time.Time) ([]dto.SlotResponse, error) {
	return s.upcoming, s.err
}

func (s *stubSlotService) Today(context.Context, models.Tutor, time.Time) ([]dto.SlotResponse, error) {
	return s.upcoming, s.err
}

func (s *stubSlotService) History(context.Context, models.Tutor, time.Time) ([]dto.SlotResponse, error) {
	return s.upcoming, s.err
}

func (s *stubSlotService) ToggleAttended(_ context.Context, _ models.Tutor, id uint) (dto.SlotResponse, error) {
	if s.toggleErr != nil {
		return dto.SlotResponse{}, s.toggleErr
	}
	return dto.SlotResponse{ID: id, Attended: true}, nil
}

func (s *stubSlotService) Suggestions(context.Context, models.Tutor, time.Time) (dto.SlotSuggestion, error) {
	return s.suggestion, s.err
}

type stubStudentService struct {
	importedText string
	importResp   dto.ImportStudentsResponse
	deletedIDs   []uint
	err          error
}

func (s *stubStudentService) List(context.Context, models.Tutor) ([]dto.StudentResponse, error) {
	return []dto.StudentResponse{{ID: 1, Name: "Ada", Email: "ada@cam.ac.uk"}}, s.err
}

func (s *stubStudentService) BulkAdd(_ context.Context, _ models.Tutor, text string) (dto.ImportStudentsResponse, error) {
	s.importedText = text
	return s.importResp, s.err
}

func (s *stubStudentService) Delete(_ context.Context, _ models.Tutor, ids []uint) (int64, error) {
	s.deletedIDs = ids
	return int64(len(ids)), s.err
}

func (s *stubStudentService) ToggleAlert(_ context.Context, _ models.Tutor, id uint) (dto.StudentResponse, error) {
	if s.err != nil {
		return dto.StudentResponse{}, s.err
	}
	return dto.StudentResponse{ID: id, Alert: true}, nil
}
