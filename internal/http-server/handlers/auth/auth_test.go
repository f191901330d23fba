package auth_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiming/entity"
	"qiming/internal/http-server/handlers/auth"
	"qiming/lib/apperr"
)

type fakeCore struct {
	validateErr error
	recoverErr  error
}

func (f *fakeCore) ValidateCode(code, deviceId, clientIp string) (*entity.TokenResult, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return &entity.TokenResult{Token: "signed-token", Message: "激活成功"}, nil
}

func (f *fakeCore) RecoverToken(code, deviceId string) (*entity.TokenResult, error) {
	if f.recoverErr != nil {
		return nil, f.recoverErr
	}
	return &entity.TokenResult{Token: "signed-token", Recovered: true, Message: "Token恢复成功"}, nil
}

func (f *fakeCore) AuthStatus(userId string) (*entity.AuthStatus, error) {
	return &entity.AuthStatus{Activated: true}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		WaitSeconds int    `json:"waitSeconds"`
	} `json:"error"`
	Timestamp string `json:"timestamp"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateSuccess(t *testing.T) {
	handler := auth.Validate(testLogger(), &fakeCore{})

	r := httptest.NewRequest(http.MethodPost, "/api/auth/validate",
		strings.NewReader(`{"code":"BABY-A3F7-K2M9-X5Q8","deviceId":"device-1234567890"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Timestamp)

	var result entity.TokenResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "signed-token", result.Token)
}

func TestValidateRejectsShortDeviceId(t *testing.T) {
	handler := auth.Validate(testLogger(), &fakeCore{})

	r := httptest.NewRequest(http.MethodPost, "/api/auth/validate",
		strings.NewReader(`{"code":"BABY-A3F7-K2M9-X5Q8","deviceId":"short"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestValidateMapsCoreErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.CodeNotFound(), http.StatusNotFound, "CODE_NOT_FOUND"},
		{apperr.CodeAlreadyUsed(), http.StatusBadRequest, "CODE_ALREADY_USED"},
		{apperr.CodeExpired(), http.StatusBadRequest, "CODE_EXPIRED"},
	}
	for _, tc := range cases {
		handler := auth.Validate(testLogger(), &fakeCore{validateErr: tc.err})

		r := httptest.NewRequest(http.MethodPost, "/api/auth/validate",
			strings.NewReader(`{"code":"BABY-A3F7-K2M9-X5Q8","deviceId":"device-1234567890"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler(w, r)

		require.Equal(t, tc.status, w.Code, tc.code)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, tc.code, env.Error.Code)
	}
}

func TestRecoverMapsDeviceMismatch(t *testing.T) {
	handler := auth.Recover(testLogger(), &fakeCore{recoverErr: apperr.DeviceMismatch()})

	r := httptest.NewRequest(http.MethodPost, "/api/auth/recover",
		strings.NewReader(`{"code":"BABY-A3F7-K2M9-X5Q8","deviceId":"device-1234567890"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "DEVICE_MISMATCH", env.Error.Code)
}

func TestRateLimitEnvelopeCarriesWait(t *testing.T) {
	handler := auth.Validate(testLogger(), &fakeCore{validateErr: apperr.RateLimitExceeded(23)})

	r := httptest.NewRequest(http.MethodPost, "/api/auth/validate",
		strings.NewReader(`{"code":"BABY-A3F7-K2M9-X5Q8","deviceId":"device-1234567890"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)

	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, 23, env.Error.WaitSeconds)
}
