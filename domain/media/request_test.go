package media

import (
	"strings"
	"testing"
	"time"
)

func TestNewPipelineRequest(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		text     string
		count    int
		delay    int
		format   string
		strategy string
		wantErr  string
		check    func(t *testing.T, r *PipelineRequest)
	}{
		{
			name:  "query with defaults",
			query: "  coffee ",
			count: 5,
			check: func(t *testing.T, r *PipelineRequest) {
				if r.Query != "coffee" {
					t.Errorf("Query = %q", r.Query)
				}
				if r.Format != FormatWebM {
					t.Errorf("Format = %q", r.Format)
				}
				if r.Strategy != ConcatStrict {
					t.Errorf("Strategy = %q", r.Strategy)
				}
				if !r.HasQuery() {
					t.Error("expected HasQuery")
				}
			},
		},
		{
			name:  "no query is allowed",
			count: 5,
			check: func(t *testing.T, r *PipelineRequest) {
				if r.HasQuery() {
					t.Error("expected no query")
				}
			},
		},
		{
			name:   "delay and gif format",
			query:  "lunch",
			count:  3,
			delay:  90,
			format: "GIF",
			check: func(t *testing.T, r *PipelineRequest) {
				if r.Delay != 90*time.Second {
					t.Errorf("Delay = %v", r.Delay)
				}
				if r.Format != FormatGIF {
					t.Errorf("Format = %q", r.Format)
				}
			},
		},
		{
			name:     "flexible strategy",
			query:    "lunch",
			count:    1,
			strategy: "flexible",
			check: func(t *testing.T, r *PipelineRequest) {
				if r.Strategy != ConcatFlexible {
					t.Errorf("Strategy = %q", r.Strategy)
				}
			},
		},
		{
			name:    "zero candidates",
			query:   "coffee",
			count:   0,
			wantErr: "considered gifs must be at least 1",
		},
		{
			name:    "negative delay",
			count:   5,
			delay:   -1,
			wantErr: "delay must not be negative",
		},
		{
			name:    "unknown format",
			count:   5,
			format:  "avi",
			wantErr: "unknown output format",
		},
		{
			name:     "unknown strategy",
			count:    5,
			strategy: "fastest",
			wantErr:  "unknown stitch strategy",
		},
		{
			name:  "text without query is ignored",
			text:  "hello",
			count: 5,
			check: func(t *testing.T, r *PipelineRequest) {
				if r.HasQuery() {
					t.Error("expected no query")
				}
				if r.CustomText != "" {
					t.Errorf("CustomText = %q, want it dropped", r.CustomText)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewPipelineRequest(tt.query, tt.text, tt.count, tt.delay, tt.format, tt.strategy)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %q, want to contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}
