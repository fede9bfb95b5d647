package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/mercury/internal/heroku/mocks"
)

const testToken = "foobar"

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func testConfig() Config {
	return Config{
		Listen:       "127.0.0.1:0",
		SlackToken:   testToken,
		HerokuSecret: "secret",
		MaxBodySize:  4096,
	}
}

// do runs a request through the routed handler.
func do(t *testing.T, h http.Handler, method, target, contentType, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestHandleHealth(t *testing.T) {
	logger, _ := newTestLogger()
	srv := New(testConfig(), nil, nil, logger)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/health", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, int64(0))
}

func TestRouting(t *testing.T) {
	logger, _ := newTestLogger()
	h := New(testConfig(), nil, nil, logger).Handler()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/slack/oops", "", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/slack", "", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/heroku/hook", "", "", nil).Code)
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr string
	}{
		{name: "missing header", wantErr: "missing Authorization header"},
		{name: "wrong scheme", header: "Basic Zm9vOmJhcg==", wantErr: "invalid Authorization header format"},
		{name: "empty token", header: "Bearer ", wantErr: "missing bearer token"},
		{name: "wrong token", header: "Bearer not-foobar", wantErr: "invalid bearer token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			notifier := mocks.NewMockDeliverer(ctrl)
			notifier.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			logger, _ := newTestLogger()
			h := New(testConfig(), notifier, nil, logger).Handler()

			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec := do(t, h, http.MethodPost, "/api/v1/slack", contentTypeForm, "channel=c&title=t&desc=d", headers)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec))
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	logger, buf := newTestLogger()
	h := New(testConfig(), nil, nil, logger).Handler()

	do(t, h, http.MethodGet, "/api/v1/health", "", "", nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/health", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	logger, _ := newTestLogger()
	srv := New(testConfig(), nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStart_ListenError(t *testing.T) {
	logger, _ := newTestLogger()
	cfg := testConfig()
	cfg.Listen = "127.0.0.1:notaport"

	err := New(cfg, nil, nil, logger).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}
