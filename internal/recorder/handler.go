package recorder

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

type StartRequest struct {
	StreamID string `json:"stream_id"`
}

type StopRequest struct {
	StreamID string `json:"stream_id"`
}

type TrimRequest struct {
	StreamID     string `json:"stream_id"`
	Filename     string `json:"filename"` // optional, overrides stream_id lookup
	Start        string `json:"start"`
	End          string `json:"end"`
	KeepOriginal *bool  `json:"keep_original"` // defaults to true
}

type Handler struct {
	supervisor *Supervisor
	clipper    *ClipEngine
	library    *Library
	registry   *Registry
	tools      *CaptureTools
}

func NewHandler(supervisor *Supervisor, clipper *ClipEngine, library *Library, registry *Registry, tools *CaptureTools) *Handler {
	return &Handler{
		supervisor: supervisor,
		clipper:    clipper,
		library:    library,
		registry:   registry,
		tools:      tools,
	}
}

func (h *Handler) StartRecording(c *fiber.Ctx) error {
	var req StartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	info, err := h.supervisor.Start(req.StreamID)
	if errors.Is(err, ErrAlreadyRecording) {
		// Idempotent start: the second caller is told, nothing else happens.
		return c.JSON(fiber.Map{
			"message":   "Recording already in progress",
			"stream_id": req.StreamID,
		})
	}
	var validation ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.Message,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Recording started",
		"session": info,
	})
}

func (h *Handler) StopRecording(c *fiber.Ctx) error {
	var req StopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.supervisor.Stop(req.StreamID); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No active recording for this stream ID",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":   "Stop signal sent",
		"stream_id": req.StreamID,
	})
}

func (h *Handler) Status(c *fiber.Ctx) error {
	recordings, err := h.library.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list recordings",
		})
	}

	return c.JSON(fiber.Map{
		"active":     h.registry.Snapshot(),
		"recordings": recordings,
	})
}

func (h *Handler) Trim(c *fiber.Ctx) error {
	var req TrimRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sourcePath, err := h.locateSource(req)
	if err != nil {
		return h.renderError(c, err)
	}

	producedPath, err := h.clipper.Extract(c.Context(), sourcePath, req.Start, req.End)
	if err != nil {
		return h.renderError(c, err)
	}

	if req.KeepOriginal != nil && !*req.KeepOriginal {
		h.clipper.DeleteSource(c.Context(), sourcePath)
	}

	return c.JSON(fiber.Map{
		"message": "Clip created",
		"clip":    filepath.Base(producedPath),
	})
}

// locateSource finds the newest artifact for the request: an explicit
// filename wins, then the active session's output, then the directory scan.
func (h *Handler) locateSource(req TrimRequest) (string, error) {
	if req.Filename != "" {
		return h.library.Resolve(req.Filename)
	}
	if req.StreamID == "" {
		return "", ValidationError{Field: "stream_id", Message: "stream id or filename is required"}
	}
	if session, ok := h.registry.Lookup(req.StreamID); ok {
		return session.OutputPath, nil
	}
	return h.library.Latest(req.StreamID)
}

func (h *Handler) DeleteRecording(c *fiber.Ctx) error {
	filename := c.Params("filename")

	if err := h.library.Delete(c.Context(), filename); err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Recording deleted",
	})
}

func (h *Handler) Download(c *fiber.Ctx) error {
	path, err := h.library.Resolve(c.Params("filename"))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Download(path)
}

// Tools reports availability of the external capture and extraction tools.
func (h *Handler) Tools(c *fiber.Ctx) error {
	status := fiber.Map{}

	if version, err := h.tools.FFmpegVersion(); err != nil {
		status["ffmpeg"] = fiber.Map{"status": "error", "detail": err.Error()}
	} else {
		status["ffmpeg"] = fiber.Map{"status": "ok", "version": version}
	}

	if version, err := h.tools.YtDlpVersion(); err != nil {
		status["yt_dlp"] = fiber.Map{"status": "error", "detail": err.Error()}
	} else {
		status["yt_dlp"] = fiber.Map{"status": "ok", "version": version}
	}

	return c.JSON(status)
}

func (h *Handler) renderError(c *fiber.Ctx, err error) error {
	var validation ValidationError
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.Message,
		})
	case errors.Is(err, ErrNoArtifact):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No recording found",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
