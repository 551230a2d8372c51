package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/storefront/internal/config"
	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/handler"
	"github.com/deppfellow/storefront/internal/lib/bgtask"
	"github.com/deppfellow/storefront/internal/lib/upload"
	"github.com/deppfellow/storefront/internal/middleware"
	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	files []model.UploadedFile
}

func (m *memoryRecorder) InsertMany(_ context.Context, files []model.UploadedFile) error {
	m.files = append(m.files, files...)
	return nil
}

type testApp struct {
	echo      *echo.Echo
	server    *server.Server
	uploadDir string
	recorder  *memoryRecorder
}

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) *testApp {
	t.Helper()

	cfg := config.Defaults()
	cfg.Server.CORSAllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.CORSAllowedHeaders = []string{"Content-Type"}
	cfg.Upload.Dir = filepath.Join(t.TempDir(), "nested", "uploads")
	cfg.Server.PublicDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	logger := zerolog.Nop()
	tasks := bgtask.New(&logger)
	t.Cleanup(func() { _ = tasks.Shutdown(time.Second) })

	s := &server.Server{Config: cfg, Logger: &logger, Tasks: tasks}

	recorder := &memoryRecorder{}
	files := upload.NewDiskStore(cfg.Upload.Dir, cfg.Upload.PublicPath, upload.NewNamer())
	services := &service.Services{
		Uploads: service.NewUploadService(files, recorder),
	}

	return &testApp{
		echo:      NewRouter(s, handler.NewHandlers(s, services)),
		server:    s,
		uploadDir: cfg.Upload.Dir,
		recorder:  recorder,
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.Response {
	t.Helper()
	var res errs.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestPipelineOrder(t *testing.T) {
	logger := zerolog.Nop()
	s := &server.Server{Config: config.Defaults(), Logger: &logger}

	var names []string
	for _, stage := range Pipeline(middleware.NewMiddlewares(s)) {
		names = append(names, stage.Name)
	}

	assert.Equal(t, []string{
		"request_id",
		"tracing",
		"trace_attributes",
		"context_logger",
		"request_logger",
		"recover",
		"cors",
		"security_headers",
		"rate_limit",
		"body_limit",
	}, names)
}

func TestErrorHandlerIsInstalled(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decodeError(t, rec).Message)
}

func TestRouteAddedLaterIsStillFormatted(t *testing.T) {
	app := newTestApp(t, nil)
	app.echo.GET("/api/late", func(c echo.Context) error {
		return errors.New("late route failed")
	})

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/late", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	res := decodeError(t, rec)
	assert.Equal(t, "Internal Server Error", res.Message)
	assert.Contains(t, res.Stack, "late route failed")
}

func TestCORSRejectionRunsBeforeRateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.RateLimit.MaxRequests = 1
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set(echo.HeaderOrigin, "http://evil.example")
		rec := app.do(req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Not allowed by CORS", decodeError(t, rec).Message)
	}

	rec := app.do(httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "rejected origins never reached the limiter")
}

func TestRateLimitResponse(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.RateLimit.MaxRequests = 2
	})

	for i := 0; i < 2; i++ {
		rec := app.do(httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.do(httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, middleware.RateLimitMessage, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions), "security headers precede the limiter")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func uploadRequest(t *testing.T, names ...string) *http.Request {
	t.Helper()

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for _, name := range names {
		part, err := w.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadEndToEnd(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(uploadRequest(t, "cover.png"))

	require.Equal(t, http.StatusOK, rec.Code)
	var single handler.SingleUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &single))
	require.True(t, strings.HasPrefix(single.FilePath, "/uploads/"))
	assert.True(t, strings.HasSuffix(single.FilePath, "-cover.png"))
	assert.NotContains(t, single.FilePath, app.uploadDir)

	stored := strings.TrimPrefix(single.FilePath, "/uploads/")
	content, err := os.ReadFile(filepath.Join(app.uploadDir, stored))
	require.NoError(t, err)
	assert.Equal(t, "bytes of cover.png", string(content))
	require.Len(t, app.recorder.files, 1)

	// The stored file is served back under the public path.
	rec = app.do(httptest.NewRequest(http.MethodGet, single.FilePath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bytes of cover.png", rec.Body.String())
}

func TestUploadManyFilesEndToEnd(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(uploadRequest(t, "a.png", "b.png"))

	require.Equal(t, http.StatusOK, rec.Code)
	var many handler.MultiUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &many))
	require.Len(t, many.Files, 2)
	assert.NotEqual(t, many.Files[0].Path, many.Files[1].Path)

	entries, err := os.ReadDir(app.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUploadWithoutFilesEndToEnd(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(uploadRequest(t))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files uploaded", decodeError(t, rec).Message)
}

func TestExampleEndToEnd(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"username":"alice","email":"Alice@Example.com"}`, http.StatusOK},
		{"short username", `{"username":"al","email":"alice@example.com"}`, http.StatusBadRequest},
		{"bad email", `{"username":"alice","email":"alice"}`, http.StatusBadRequest},
		{"malformed", `{"username"`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/example", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

			rec := app.do(req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestProductionMasksStack(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Primary.Env = "production"
	})
	app.echo.GET("/api/boom", func(c echo.Context) error {
		panic("boom")
	})

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errs.MaskedStack, decodeError(t, rec).Stack)
	assert.Equal(t, "same-origin", rec.Header().Get("Cross-Origin-Resource-Policy"))
}

func TestPublicDirectoryIsServed(t *testing.T) {
	app := newTestApp(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(app.server.Config.Server.PublicDir, "robots.txt"), []byte("User-agent: *"), 0o644))

	rec := app.do(httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User-agent: *", rec.Body.String())
}
