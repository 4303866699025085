package recorder

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, script string) (*fiber.App, *Registry, *fakeStore, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := testRecorderConfig(t, dir)
	cfg.YtDlpPath = writeScript(t, dir, "fake-yt-dlp", script)
	cfg.FFmpegPath = writeScript(t, dir, "fake-ffmpeg", successfulTrimScript)

	registry := NewRegistry()
	store := newFakeStore()
	tools := NewCaptureTools(cfg)
	supervisor, err := NewSupervisor(cfg, registry, tools, nil)
	require.NoError(t, err)

	handler := NewHandler(
		supervisor,
		NewClipEngine(cfg, store),
		NewLibrary(dir, store),
		registry,
		tools,
	)

	app := fiber.New()
	app.Post("/api/recorder/start", handler.StartRecording)
	app.Post("/api/recorder/stop", handler.StopRecording)
	app.Get("/api/recorder/status", handler.Status)
	app.Post("/api/recorder/trim", handler.Trim)
	app.Delete("/api/recorder/recordings/:filename", handler.DeleteRecording)
	app.Get("/downloads/:filename", handler.Download)

	return app, registry, store, dir
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded
}

func TestStartEndpointLifecycle(t *testing.T) {
	app, registry, _, _ := newTestApp(t, captureScript)

	resp := postJSON(t, app, "/api/recorder/start", StartRequest{StreamID: "abc123"})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, registry.Len())

	// Second start is a no-op, not an error.
	resp = postJSON(t, app, "/api/recorder/start", StartRequest{StreamID: "abc123"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Recording already in progress", body["message"])
	assert.Equal(t, 1, registry.Len())

	resp = postJSON(t, app, "/api/recorder/stop", StopRequest{StreamID: "abc123"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	waitFor(t, 5*time.Second, func() bool { return registry.Len() == 0 })
}

func TestStartEndpointRejectsInvalidID(t *testing.T) {
	app, registry, _, _ := newTestApp(t, captureScript)

	resp := postJSON(t, app, "/api/recorder/start", StartRequest{StreamID: "abc_123"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, registry.Len())
}

func TestStopEndpointWithoutSession(t *testing.T) {
	app, _, _, _ := newTestApp(t, captureScript)

	resp := postJSON(t, app, "/api/recorder/stop", StopRequest{StreamID: "nobody"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "No active recording for this stream ID", body["error"])
}

func TestStatusEndpoint(t *testing.T) {
	app, _, _, dir := newTestApp(t, captureScript)
	writeArtifact(t, dir, "abc123_20240101_000000.mp4", 2048, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/recorder/status", nil)
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Empty(t, body["active"])
	recordings, ok := body["recordings"].([]interface{})
	require.True(t, ok)
	require.Len(t, recordings, 1)
}

func TestTrimEndpointValidation(t *testing.T) {
	app, _, store, dir := newTestApp(t, captureScript)
	writeArtifact(t, dir, "abc123_20240101_000000.mp4", 2048, time.Now())

	tests := []struct {
		name       string
		req        TrimRequest
		wantStatus int
		wantError  string
	}{
		{
			name:       "end before start",
			req:        TrimRequest{StreamID: "abc123", Start: "0:40", End: "0:10"},
			wantStatus: fiber.StatusBadRequest,
			wantError:  "end time must be after start time",
		},
		{
			name:       "malformed start",
			req:        TrimRequest{StreamID: "abc123", Start: "abc"},
			wantStatus: fiber.StatusBadRequest,
			wantError:  "invalid start time format",
		},
		{
			name:       "unknown stream id",
			req:        TrimRequest{StreamID: "xyz789", Start: "0:10"},
			wantStatus: fiber.StatusNotFound,
			wantError:  "No recording found",
		},
		{
			name:       "missing stream id and filename",
			req:        TrimRequest{Start: "0:10"},
			wantStatus: fiber.StatusBadRequest,
			wantError:  "stream id or filename is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/api/recorder/trim", tt.req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeBody(t, resp)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}

	assert.Equal(t, 0, store.trimCount())
}

func TestTrimEndpointProducesClip(t *testing.T) {
	app, _, store, dir := newTestApp(t, captureScript)
	writeArtifact(t, dir, "abc123_20240101_000000.mp4", 2048, time.Now())

	resp := postJSON(t, app, "/api/recorder/trim", TrimRequest{
		StreamID: "abc123",
		Start:    "0:10",
		End:      "0:40",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "abc123_clip_010-040.mp4", body["clip"])
	assert.Equal(t, 1, store.trimCount())
}

func TestDeleteEndpoint(t *testing.T) {
	app, _, _, dir := newTestApp(t, captureScript)
	writeArtifact(t, dir, "abc123_20240101_000000.mp4", 2048, time.Now())

	req := httptest.NewRequest(http.MethodDelete, "/api/recorder/recordings/abc123_20240101_000000.mp4", nil)
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Second delete: the file is gone.
	req = httptest.NewRequest(http.MethodDelete, "/api/recorder/recordings/abc123_20240101_000000.mp4", nil)
	resp, err = app.Test(req, 10000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDownloadEndpointUnknownFile(t *testing.T) {
	app, _, _, _ := newTestApp(t, captureScript)

	req := httptest.NewRequest(http.MethodGet, "/downloads/missing.mp4", nil)
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
