package recorder

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRecording is returned when a start request targets a stream
	// id that already has an active session. Callers treat it as a no-op.
	ErrAlreadyRecording = errors.New("recording already active for this stream id")

	// ErrNoActiveSession is returned by stop when no session exists.
	ErrNoActiveSession = errors.New("no active recording for this stream id")

	// ErrNoArtifact is returned when no recording file exists for a stream id
	// or filename.
	ErrNoArtifact = errors.New("no recording found")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
