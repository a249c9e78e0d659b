package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/handler"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/service"
)

type stubInvitationService struct {
	lastReq  dto.InvitationRequest
	result   dto.InvitationResult
	overview dto.InvitationOverview
	err      error
}

func (s *stubInvitationService) Overview(context.Context, models.Tutor, time.Time) (dto.InvitationOverview, error) {
	return s.overview, s.err
}

func (s *stubInvitationService) Send(_ context.Context, _ models.Tutor, req dto.InvitationRequest) (dto.InvitationResult, error) {
	s.lastReq = req
	return s.result, s.err
}

func TestEmailHandler_SendsToSelectedStudents(t *testing.T) {
	tutor := testTutor()
	svc := &stubInvitationService{result: dto.InvitationResult{Sent: 2, FailedRecipients: []string{}}}
	app := newTutorApp(&tutor)
	handler.NewEmailHandler(svc, testLogger()).Register(app.Group("/tutor"))

	resp, err := app.Test(formRequest(http.MethodPost, "/tutor/emails", url.Values{
		"emailBody":  {"Please book: [link]"},
		"student_2":  {"on"},
		"student_11": {"on"},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []uint{2, 11}, svc.lastReq.StudentIDs)
	require.Equal(t, "Please book: [link]", svc.lastReq.Body)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "invitations sent", body.Message)
}

func TestEmailHandler_ReportsPartialDelivery(t *testing.T) {
	tutor := testTutor()
	svc := &stubInvitationService{result: dto.InvitationResult{Sent: 1, Failed: 1, FailedRecipients: []string{"grace@cam.ac.uk"}}}
	app := newTutorApp(&tutor)
	handler.NewEmailHandler(svc, testLogger()).Register(app.Group("/tutor"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/tutor/emails", dto.InvitationRequest{StudentIDs: []uint{1, 2}, Body: "[link]"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data    dto.InvitationResult `json:"data"`
		Message string               `json:"message"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "some invitations may not have been delivered", body.Message)
	require.Equal(t, []string{"grace@cam.ac.uk"}, body.Data.FailedRecipients)
}

func TestEmailHandler_NoRecipients(t *testing.T) {
	tutor := testTutor()
	app := newTutorApp(&tutor)
	handler.NewEmailHandler(&stubInvitationService{err: service.ErrNoRecipients}, testLogger()).Register(app.Group("/tutor"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/tutor/emails", dto.InvitationRequest{StudentIDs: []uint{99}, Body: "[link]"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmailHandler_Overview(t *testing.T) {
	tutor := testTutor()
	svc := &stubInvitationService{overview: dto.InvitationOverview{
		Tutor:    dto.NewTutorResponse(tutor),
		Students: []dto.InvitationStudent{{ID: 1, Name: "Ada", SignupURL: "https://exeats.example.com/signup/1-abc"}},
	}}
	app := newTutorApp(&tutor)
	handler.NewEmailHandler(svc, testLogger()).Register(app.Group("/tutor"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tutor/emails", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.InvitationOverview `json:"data"`
		Meta map[string]int         `json:"meta"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 1, body.Meta["count"])
	require.Equal(t, "https://exeats.example.com/signup/1-abc", body.Data.Students[0].SignupURL)
}
