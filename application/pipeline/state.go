package pipeline

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// State is a step of one pipeline run
type State string

const (
	StateIdle        State = "idle"
	StateSearching   State = "searching"
	StateDownloading State = "downloading"
	StateScaling     State = "scaling"
	StateCaptioning  State = "captioning"
	StateStitching   State = "stitching"
	StateUploading   State = "uploading"
	StatePresenting  State = "presenting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Tracker validates and records the transitions of a single run
type Tracker struct {
	mu      sync.Mutex
	current State
	reason  error
	history []State
	log     *logrus.Entry
}

// NewTracker creates a tracker in the idle state
func NewTracker(log *logrus.Entry) *Tracker {
	return &Tracker{
		current: StateIdle,
		history: []State{StateIdle},
		log:     log,
	}
}

// Transition validates and applies a state transition
func (t *Tracker) Transition(to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if to == StateFailed {
		return fmt.Errorf("use Fail to enter %s", StateFailed)
	}
	if !isValidTransition(t.current, to) {
		return fmt.Errorf("invalid transition: %s -> %s", t.current, to)
	}

	t.log.WithFields(logrus.Fields{"from": t.current, "to": to}).Debug("state")
	t.current = to
	t.history = append(t.history, to)
	return nil
}

// Fail moves any non-terminal run into the failed state
func (t *Tracker) Fail(reason error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if isTerminal(t.current) {
		return
	}

	t.log.WithFields(logrus.Fields{"from": t.current, "to": StateFailed}).WithError(reason).Debug("state")
	t.current = StateFailed
	t.reason = reason
	t.history = append(t.history, StateFailed)
}

// Current returns the current state
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Reason returns the error that failed the run, if any
func (t *Tracker) Reason() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// History returns every state the run has been in, in order
func (t *Tracker) History() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]State(nil), t.history...)
}

func isTerminal(s State) bool {
	return s == StateDone || s == StateFailed
}

func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateSearching
	case StateSearching:
		return to == StateDownloading
	case StateDownloading:
		return to == StateScaling
	case StateScaling:
		return to == StateCaptioning
	case StateCaptioning:
		return to == StateStitching
	case StateStitching:
		// uploading is skipped with --no-upload
		return to == StateUploading || to == StatePresenting
	case StateUploading:
		return to == StatePresenting
	case StatePresenting:
		return to == StateDone
	default:
		return false
	}
}
