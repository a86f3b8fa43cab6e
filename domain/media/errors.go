package media

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound is returned when the external video command is absent from PATH
	ErrToolNotFound = errors.New("ffmpeg could not be found in path")

	// ErrProbeUnavailable is returned when no geometry probe is compiled in
	ErrProbeUnavailable = errors.New("geometry probe not available")
)

// ProcessIOError is a spawn or wait failure unrelated to the tool being absent
type ProcessIOError struct {
	Kind JobKind
	Err  error
}

func (e *ProcessIOError) Error() string {
	return fmt.Sprintf("could not run ffmpeg %s command: %v", e.Kind, e.Err)
}

func (e *ProcessIOError) Unwrap() error {
	return e.Err
}

// ProcessingError is a transformation whose subprocess exited non-zero
type ProcessingError struct {
	Kind     JobKind
	ExitCode int // -1 when the exit code is unavailable
}

func (e *ProcessingError) Error() string {
	code := "None"
	if e.ExitCode >= 0 {
		code = fmt.Sprintf("%d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg %s step failed (exit code %s)", e.Kind, code)
}
