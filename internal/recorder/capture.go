package recorder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"streamvault/internal/config"
)

// CaptureTools wraps the external yt-dlp and ffmpeg binaries.
type CaptureTools struct {
	cfg config.RecorderConfig
}

func NewCaptureTools(cfg config.RecorderConfig) *CaptureTools {
	return &CaptureTools{cfg: cfg}
}

// WatchURL builds the watch URL for a stream id.
func (t *CaptureTools) WatchURL(streamID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", streamID)
}

// CaptureCommand builds the yt-dlp invocation for one capture: best combined
// video+audio, merged into a single mp4, rewinding to the start of the
// broadcast when the platform allows it.
func (t *CaptureTools) CaptureCommand(streamID, outputPath string) *exec.Cmd {
	return exec.Command(t.cfg.YtDlpPath,
		"--live-from-start",
		"-f", "bv*+ba/best",
		"-o", outputPath,
		"--merge-output-format", "mp4",
		t.WatchURL(streamID),
	)
}

// ResolveTitle asks yt-dlp for the stream title, bounded by the configured
// title timeout. One line of output is expected.
func (t *CaptureTools) ResolveTitle(ctx context.Context, streamID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.TitleTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.cfg.YtDlpPath,
		"--skip-download",
		"--print", "title",
		t.WatchURL(streamID),
	)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("title lookup failed: %w", err)
	}

	title := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if title == "" {
		return "", fmt.Errorf("title lookup returned no output")
	}
	return title, nil
}

// FFmpegVersion checks that ffmpeg is installed and returns its version line.
func (t *CaptureTools) FFmpegVersion() (string, error) {
	return versionLine(t.cfg.FFmpegPath, "-version")
}

// YtDlpVersion checks that yt-dlp is installed and returns its version.
func (t *CaptureTools) YtDlpVersion() (string, error) {
	return versionLine(t.cfg.YtDlpPath, "--version")
}

func versionLine(path string, arg string) (string, error) {
	cmd := exec.Command(path, arg)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", path, err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0]), nil
	}
	return "", fmt.Errorf("%s found but returned no version info", path)
}
