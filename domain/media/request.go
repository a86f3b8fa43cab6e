package media

import (
	"fmt"
	"strings"
	"time"
)

// DefaultConsideredGifs is the CLI default for the query clip's candidate pool
const DefaultConsideredGifs = 5

// OutputFormat is the container of the final clip
type OutputFormat string

const (
	FormatWebM OutputFormat = "webm"
	FormatGIF  OutputFormat = "gif"
)

// PipelineRequest is the validated user intent for one run
type PipelineRequest struct {
	Query          string
	CustomText     string
	ConsideredGifs int
	NoUpload       bool
	Explorer       bool
	Relative       bool
	Open           bool
	Delay          time.Duration
	Format         OutputFormat
	Strategy       ConcatStrategy
}

// NewPipelineRequest normalizes and validates raw CLI input
func NewPipelineRequest(query, customText string, consideredGifs int, delaySeconds int, format, strategy string) (*PipelineRequest, error) {
	req := &PipelineRequest{
		Query:          strings.TrimSpace(query),
		CustomText:     strings.TrimSpace(customText),
		ConsideredGifs: consideredGifs,
		Delay:          time.Duration(delaySeconds) * time.Second,
		Format:         OutputFormat(strings.ToLower(strings.TrimSpace(format))),
	}

	if req.Format == "" {
		req.Format = FormatWebM
	}
	// Custom text only captions the query clip
	if req.Query == "" {
		req.CustomText = ""
	}

	s, err := ParseConcatStrategy(strings.ToLower(strings.TrimSpace(strategy)))
	if err != nil {
		return nil, err
	}
	req.Strategy = s

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks that the request is runnable
func (r *PipelineRequest) Validate() error {
	if r.ConsideredGifs < 1 {
		return fmt.Errorf("considered gifs must be at least 1, got %d", r.ConsideredGifs)
	}
	if r.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	if r.Format != FormatWebM && r.Format != FormatGIF {
		return fmt.Errorf("unknown output format %q (expected webm or gif)", r.Format)
	}
	return nil
}

// HasQuery returns true if the run includes a query clip
func (r *PipelineRequest) HasQuery() bool {
	return r.Query != ""
}
