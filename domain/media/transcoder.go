package media

import (
	"context"
	"fmt"
)

// JobKind names the transformation a TranscodeJob performs
type JobKind string

const (
	JobCaption        JobKind = "caption"
	JobScale          JobKind = "scale"
	JobConvert        JobKind = "convert"
	JobConcatFlexible JobKind = "concat-flexible"
	JobConcatStrict   JobKind = "concat-strict"
)

// Size is a frame geometry in pixels
type Size struct {
	Width  int
	Height int
}

// DefaultSize is the geometry every clip is normalized to before stitching
var DefaultSize = Size{Width: 480, Height: 270}

// String returns the size in WxH format
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// IsZero returns true if no dimension is set
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// ConcatStrategy selects how two clips are joined
type ConcatStrategy string

const (
	// ConcatStrict uses the concat demuxer with stream copy; inputs need identical codec parameters
	ConcatStrict ConcatStrategy = "strict"

	// ConcatFlexible uses the concat filter; the second input is stretched to the first
	ConcatFlexible ConcatStrategy = "flexible"

	// ConcatAuto probes geometries and picks strict when they match
	ConcatAuto ConcatStrategy = "auto"
)

// ParseConcatStrategy validates a strategy name, defaulting to strict
func ParseConcatStrategy(s string) (ConcatStrategy, error) {
	switch ConcatStrategy(s) {
	case "", ConcatStrict:
		return ConcatStrict, nil
	case ConcatFlexible:
		return ConcatFlexible, nil
	case ConcatAuto:
		return ConcatAuto, nil
	default:
		return "", fmt.Errorf("unknown stitch strategy %q (expected strict, flexible or auto)", s)
	}
}

// TranscodeJob describes one external transformation
type TranscodeJob struct {
	Kind   JobKind
	Inputs []string
	Output string
	Text   string // caption text, JobCaption only
	Size   Size   // target geometry, JobScale only
}

// String renders the job for logs
func (j TranscodeJob) String() string {
	return fmt.Sprintf("%s %v -> %s", j.Kind, j.Inputs, j.Output)
}

// Process is a handle on a spawned transformation.
// Wait blocks until the subprocess exits and may be called from any goroutine.
type Process interface {
	Job() TranscodeJob
	Wait() error
}

// Transcoder wraps the external video-processing command.
// Every method spawns exactly one subprocess and returns without waiting for it.
type Transcoder interface {
	IsAvailable(ctx context.Context) bool
	Caption(ctx context.Context, input, text, output string) (Process, error)
	Scale(ctx context.Context, input string, size Size, output string) (Process, error)
	ConvertToStill(ctx context.Context, input string) (Process, error)
	Concat(ctx context.Context, strategy ConcatStrategy, first, second, output string) (Process, error)
}

// GeometryProbe reads the frame size of a clip
type GeometryProbe interface {
	Probe(ctx context.Context, path string) (Size, error)
}
