package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
	"github.com/stretchr/testify/require"
)

func TestToHTTP_Mapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("service/op: %w", err) }

	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", wrap(service.ErrRequiredFields), http.StatusBadRequest, "validation_error", "all fields are required"},
		{"self subscription", wrap(service.ErrSelfSubscription), http.StatusBadRequest, "validation_error", "cannot subscribe to own channel"},
		{"expired", wrap(service.ErrTokenExpired), http.StatusUnauthorized, "unauthorized", "token expired"},
		{"reuse", wrap(service.ErrTokenReuseDetected), http.StatusUnauthorized, "unauthorized", "refresh token reuse detected"},
		{"not found", wrap(service.ErrChannelNotFound), http.StatusNotFound, "not_found", "channel not found"},
		{"conflict", wrap(service.ErrUserExists), http.StatusConflict, "conflict", "user with email or username already exists"},
		{"media", fmt.Errorf("op: %w: %w", service.ErrMediaUploadFailed, errors.New("dial tcp 10.0.0.1")), http.StatusBadGateway, "media_upload_failed", "media upload failed"},
		{"persistence", fmt.Errorf("op: %w: %w", service.ErrPersistence, errors.New("mongo: server selection")), http.StatusInternalServerError, "internal", "internal error"},
		{"rate", ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests", "too many requests"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled", "canceled"},
		{"deadline", fmt.Errorf("op: %w: %w", service.ErrPersistence, context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
		{"malformed", ErrMalformedBody, http.StatusBadRequest, "validation_error", "malformed request body"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal", "internal error"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.Equal(t, tc.wantMsg, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_Envelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, req, service.ErrInvalidToken)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "unauthorized", body.Error.Code)
	require.Equal(t, "invalid token", body.Error.Message)
	require.Equal(t, "rid-1", body.Error.RequestID)
}
