package history

import (
	"context"
	"time"
)

// Status is the outcome of a run
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry describes one finished run
type Entry struct {
	RunID      string
	Query      string
	Text       string
	Strategy   string
	Format     string
	OutputPath string
	Link       string
	Status     Status
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Uploaded returns true if the run ended with a hosted link
func (e Entry) Uploaded() bool {
	return e.Link != ""
}

// Recorder persists finished runs
// This is a port that can be implemented by different infrastructure adapters
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Lister returns recorded runs, most recent first
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
