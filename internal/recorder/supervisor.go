package recorder

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"streamvault/internal/config"
)

// Notifier receives session lifecycle events. Implementations must not block.
type Notifier interface {
	NotifySession(event, streamID, filename string)
}

// Supervisor runs one capture end-to-end: it reserves the stream id in the
// registry, launches the external capture process, waits for it in a
// background goroutine and releases the reservation on every exit path.
type Supervisor struct {
	cfg      config.RecorderConfig
	registry *Registry
	tools    *CaptureTools
	events   Notifier
	location *time.Location
}

func NewSupervisor(cfg config.RecorderConfig, registry *Registry, tools *CaptureTools, events Notifier) (*Supervisor, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid recorder timezone %q: %w", cfg.Timezone, err)
	}

	return &Supervisor{
		cfg:      cfg,
		registry: registry,
		tools:    tools,
		events:   events,
		location: location,
	}, nil
}

// CaptureFilename derives the output filename for a capture started at t.
// Second resolution in the configured time zone; two starts for the same id
// within one second would collide, which TryReserve makes unreachable while
// the first capture is still running.
func CaptureFilename(streamID string, t time.Time) string {
	return fmt.Sprintf("%s_%s.mp4", streamID, t.Format("20060102_150405"))
}

// ValidateStreamID rejects ids that are empty, contain the filename
// separator, or could escape the download directory.
func ValidateStreamID(streamID string) error {
	if strings.TrimSpace(streamID) == "" {
		return ValidationError{Field: "stream_id", Message: "stream id is required"}
	}
	if strings.Contains(streamID, "_") {
		return ValidationError{Field: "stream_id", Message: "stream id must not contain '_'"}
	}
	if strings.ContainsAny(streamID, "/\\") || streamID == "." || streamID == ".." {
		return ValidationError{Field: "stream_id", Message: "stream id contains invalid characters"}
	}
	return nil
}

// Start launches a capture for streamID and returns without waiting for it.
// A start for an id that is already recording is a no-op reported as
// ErrAlreadyRecording.
func (s *Supervisor) Start(streamID string) (SessionInfo, error) {
	streamID = strings.TrimSpace(streamID)
	if err := ValidateStreamID(streamID); err != nil {
		return SessionInfo{}, err
	}

	now := time.Now().In(s.location)
	outputPath := filepath.Join(s.cfg.DownloadDir, CaptureFilename(streamID, now))
	session := &Session{
		StreamID:   streamID,
		OutputPath: outputPath,
		StartedAt:  now,
	}

	if !s.registry.TryReserve(session) {
		return SessionInfo{}, ErrAlreadyRecording
	}

	if err := os.MkdirAll(s.cfg.DownloadDir, 0o755); err != nil {
		s.registry.Release(streamID)
		return SessionInfo{}, errors.Wrap(err, "creating download directory")
	}

	cmd := s.tools.CaptureCommand(streamID, outputPath)
	if err := cmd.Start(); err != nil {
		s.registry.Release(streamID)
		return SessionInfo{}, errors.Wrapf(err, "starting capture for %s", streamID)
	}
	session.setProcess(cmd.Process)

	log.Printf("Supervisor: started recording %s (PID %d) -> %s", streamID, session.PID(), outputPath)
	s.notify("recording_started", streamID, filepath.Base(outputPath))

	go s.wait(session, cmd)

	return SessionInfo{
		StreamID:   streamID,
		OutputFile: filepath.Base(outputPath),
		PID:        session.PID(),
		StartedAt:  session.StartedAt,
	}, nil
}

// wait blocks until the capture exits, then releases the registry entry.
// This goroutine is the only place a session is removed from the registry,
// and the only one that touches the command after launch.
func (s *Supervisor) wait(session *Session, cmd *exec.Cmd) {
	defer func() {
		s.registry.Release(session.StreamID)
		s.notify("recording_finished", session.StreamID, filepath.Base(session.OutputPath))
	}()

	if err := cmd.Wait(); err != nil {
		// Terminal for this session only. An interrupted capture also lands
		// here; the container on disk is still usable.
		log.Printf("Supervisor: recording %s exited: %v", session.StreamID, err)
		return
	}
	log.Printf("Supervisor: recording %s completed: %s", session.StreamID, session.OutputPath)
}

// Stop delivers a graceful interrupt to the capture so the external tool can
// finalize the container. The registry entry is not removed here; wait does
// that when the process actually exits. If the tool ignores the interrupt,
// a kill follows after the configured escalation timeout.
func (s *Supervisor) Stop(streamID string) error {
	session, ok := s.registry.Lookup(streamID)
	if !ok {
		return ErrNoActiveSession
	}

	log.Printf("Supervisor: stopping recording %s (PID %d)", streamID, session.PID())
	if err := session.Signal(os.Interrupt); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			// The launch has not completed; nothing was signalled, so the
			// caller must not be told the stop took effect.
			return ErrNoActiveSession
		}
		// Already exiting; the wait goroutine handles cleanup.
		log.Printf("Supervisor: interrupt for %s not delivered: %v", streamID, err)
		return nil
	}
	s.notify("recording_stopping", streamID, filepath.Base(session.OutputPath))

	if s.cfg.StopKillAfter > 0 {
		go s.escalate(session)
	}
	return nil
}

// escalate force-kills a capture that ignored the interrupt. It only signals;
// releasing the registry entry stays with the wait goroutine.
func (s *Supervisor) escalate(session *Session) {
	time.Sleep(s.cfg.StopKillAfter)

	current, ok := s.registry.Lookup(session.StreamID)
	if !ok || current != session {
		return
	}
	log.Printf("Supervisor: recording %s ignored interrupt for %s, killing", session.StreamID, s.cfg.StopKillAfter)
	_ = session.Signal(os.Kill)
}

func (s *Supervisor) notify(event, streamID, filename string) {
	if s.events != nil {
		s.events.NotifySession(event, streamID, filename)
	}
}
