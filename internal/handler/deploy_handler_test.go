package handler_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exeats-api/internal/deploy"
	"github.com/noah-isme/exeats-api/internal/handler"
)

type stubDeployRunner struct {
	calls int
	err   error
}

func (r *stubDeployRunner) Run(context.Context) error {
	r.calls++
	return r.err
}

func deployRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/deploy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(deploy.SignatureHeader, signature)
	}
	return req
}

func TestDeployHandler(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/master"}`)
	valid := deploy.Sign("hook-secret", body)

	cases := []struct {
		name      string
		signature string
		runErr    error
		status    int
		calls     int
	}{
		{name: "valid signature", signature: valid, status: http.StatusAccepted, calls: 1},
		{name: "missing signature", status: http.StatusForbidden},
		{name: "wrong secret", signature: deploy.Sign("other", body), status: http.StatusForbidden},
		{name: "pipeline failure", signature: valid, runErr: &deploy.StepError{Step: "migrate", Err: errors.New("exit status 1")}, status: http.StatusNotFound, calls: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &stubDeployRunner{err: tc.runErr}
			app := newTutorApp(nil)
			handler.NewDeployHandler("hook-secret", runner, testLogger()).Register(app)

			resp, err := app.Test(deployRequest(body, tc.signature))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.calls, runner.calls)
		})
	}
}

func TestDeployHandler_EmptySecretRejectsEverything(t *testing.T) {
	runner := &stubDeployRunner{}
	app := newTutorApp(nil)
	handler.NewDeployHandler("", runner, testLogger()).Register(app)

	body := []byte("{}")
	resp, err := app.Test(deployRequest(body, deploy.Sign("", body)))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, runner.calls)
}
