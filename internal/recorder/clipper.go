package recorder

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"streamvault/internal/config"
	"streamvault/internal/metadata"
)

// ClipEngine performs lossless trims of capture artifacts via ffmpeg stream
// copy and persists trim metadata for each produced clip.
type ClipEngine struct {
	cfg   config.RecorderConfig
	store MetadataStore
}

func NewClipEngine(cfg config.RecorderConfig, store MetadataStore) *ClipEngine {
	return &ClipEngine{cfg: cfg, store: store}
}

// ClipFilename derives the deterministic output name for a trim of streamID
// with the given literal start/end text. Repeating the same request yields
// the same filename.
func ClipFilename(streamID, startText, endText string) string {
	start := sanitizeTimeText(startText)
	if end := sanitizeTimeText(endText); end != "" {
		return fmt.Sprintf("%s_clip_%s-%s.mp4", streamID, start, end)
	}
	return fmt.Sprintf("%s_clip_%s.mp4", streamID, start)
}

func sanitizeTimeText(text string) string {
	return strings.NewReplacer(":", "", ".", "p").Replace(strings.TrimSpace(text))
}

// Extract trims sourcePath from start to end (end empty means end-of-source)
// and returns the produced path. The source file is never modified. Trim
// metadata is written only after the output passes the plausibility check.
func (e *ClipEngine) Extract(ctx context.Context, sourcePath, startText, endText string) (string, error) {
	startSeconds, err := ParseTimeSpec(startText)
	if err != nil {
		return "", ValidationError{Field: "start_time", Message: "invalid start time format"}
	}
	if startSeconds < 0 {
		return "", ValidationError{Field: "start_time", Message: "start time must not be negative"}
	}

	var endSeconds *float64
	hasEnd := strings.TrimSpace(endText) != ""
	if hasEnd {
		parsed, err := ParseTimeSpec(endText)
		if err != nil {
			return "", ValidationError{Field: "end_time", Message: "invalid end time format"}
		}
		if parsed <= startSeconds {
			return "", ValidationError{Field: "end_time", Message: "end time must be after start time"}
		}
		endSeconds = &parsed
	}

	streamID := StreamIDFromFilename(filepath.Base(sourcePath))
	outputName := ClipFilename(streamID, startText, endText)
	outputPath := filepath.Join(filepath.Dir(sourcePath), outputName)

	args := []string{
		"-i", sourcePath,
		"-ss", formatSeconds(startSeconds),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
	}
	if endSeconds != nil {
		args = append(args, "-t", formatSeconds(*endSeconds-startSeconds))
	}
	args = append(args, "-y", outputPath)

	cmd := exec.CommandContext(ctx, e.cfg.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "ffmpeg failed: %s", diagnostic(output))
	}

	// A zero exit with a truncated or missing file is still a failure.
	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() <= e.cfg.MinClipBytes {
		return "", errors.Errorf("ffmpeg produced no usable output for %s: %s", outputName, diagnostic(output))
	}

	record := metadata.TrimRecord{
		Filename:     outputName,
		StreamID:     streamID,
		Start:        strings.TrimSpace(startText),
		StartSeconds: startSeconds,
		EndSeconds:   endSeconds,
		CreatedAt:    time.Now(),
	}
	if hasEnd {
		record.End = strings.TrimSpace(endText)
	}
	if err := e.store.PutTrim(ctx, record); err != nil {
		return "", errors.Wrap(err, "clip produced but metadata write failed")
	}

	log.Printf("ClipEngine: created %s (%d bytes)", outputName, info.Size())
	return outputPath, nil
}

// DeleteSource removes a source artifact after a successful clip. Failures
// are logged, not propagated: the clip itself already succeeded.
func (e *ClipEngine) DeleteSource(ctx context.Context, sourcePath string) {
	if err := os.Remove(sourcePath); err != nil {
		log.Printf("ClipEngine: could not delete source %s: %v", sourcePath, err)
		return
	}
	if err := e.store.DeleteTrim(ctx, filepath.Base(sourcePath)); err != nil {
		log.Printf("ClipEngine: could not delete source metadata %s: %v", sourcePath, err)
	}
	log.Printf("ClipEngine: deleted source %s", sourcePath)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func diagnostic(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "unknown error"
	}
	return text
}
