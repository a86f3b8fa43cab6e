package pipeline

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestTracker_FullRun(t *testing.T) {
	tr := NewTracker(quietLogger())
	steps := []State{
		StateSearching, StateDownloading, StateScaling, StateCaptioning,
		StateStitching, StateUploading, StatePresenting, StateDone,
	}
	for _, s := range steps {
		if err := tr.Transition(s); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
	}
	if tr.Current() != StateDone {
		t.Errorf("Current() = %s", tr.Current())
	}
	if len(tr.History()) != len(steps)+1 {
		t.Errorf("History() = %v", tr.History())
	}
}

func TestTracker_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		next State
	}{
		{"skip search", nil, StateDownloading},
		{"caption before scale", []State{StateSearching, StateDownloading}, StateCaptioning},
		{"backwards", []State{StateSearching, StateDownloading}, StateSearching},
		{"failed via transition", []State{StateSearching}, StateFailed},
		{"leave done", []State{StateSearching, StateDownloading, StateScaling, StateCaptioning, StateStitching, StatePresenting, StateDone}, StateSearching},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(quietLogger())
			for _, s := range tt.path {
				if err := tr.Transition(s); err != nil {
					t.Fatalf("setup Transition(%s) error = %v", s, err)
				}
			}
			if err := tr.Transition(tt.next); err == nil {
				t.Errorf("Transition(%s) from %s succeeded, want error", tt.next, tr.Current())
			}
		})
	}
}

func TestTracker_FailIsAbsorbing(t *testing.T) {
	reason := errors.New("boom")

	tr := NewTracker(quietLogger())
	tr.Fail(reason)
	if tr.Current() != StateFailed || !errors.Is(tr.Reason(), reason) {
		t.Fatalf("Current() = %s, Reason() = %v", tr.Current(), tr.Reason())
	}

	if err := tr.Transition(StateSearching); err == nil {
		t.Error("transition out of failed succeeded")
	}

	tr.Fail(errors.New("second"))
	if !errors.Is(tr.Reason(), reason) {
		t.Errorf("Reason() = %v, first failure should stick", tr.Reason())
	}
}
