package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/handler"
)

func compileContract(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "contracts", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(path))
	require.NoError(t, err)
	return schema
}

func validateContract(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestSignupPageContract(t *testing.T) {
	schema := compileContract(t, "signup_page.schema.json")

	starts := time.Date(2030, 5, 2, 8, 0, 0, 0, time.UTC)
	mine := dto.SignupSlot{ID: 4, StartsAt: starts, Start: "02/05/30 09:00", Location: "Library", Available: false, Mine: true}
	svc := &stubBookingService{page: dto.SignupPage{
		Student: "Ada",
		Tutor:   "Dr Tutor",
		Current: &mine,
		Slots: []dto.SignupSlot{
			mine,
			{ID: 5, StartsAt: starts.Add(10 * time.Minute), Start: "02/05/30 09:10", Location: "Library", Available: true},
		},
	}}

	app := newTutorApp(nil)
	handler.NewSignupHandler(svc, nil, testLogger()).Register(app.Group("/signup"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/signup/1-abc", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateContract(t, schema, resp)
}

func TestBookingResponseContract(t *testing.T) {
	schema := compileContract(t, "booking_response.schema.json")

	for _, status := range []string{dto.BookingStatusBooked, dto.BookingStatusUnavailable} {
		t.Run(status, func(t *testing.T) {
			result := dto.BookingResponse{Status: status}
			if status == dto.BookingStatusBooked {
				result.Slot = &dto.SignupSlot{ID: 4, Start: "02/05/30 09:00", Location: "Library", Mine: true}
				result.EmailSent = true
			}

			app := newTutorApp(nil)
			handler.NewSignupHandler(&stubBookingService{result: result}, nil, testLogger()).Register(app.Group("/signup"))

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/signup/1-abc", dto.BookRequest{SlotID: 4}))
			require.NoError(t, err)
			validateContract(t, schema, resp)
		})
	}
}
