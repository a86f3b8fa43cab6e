package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"time-for/domain/media"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultFontFile is the caption font, relative to the working directory
	DefaultFontFile = "assets/Montserrat-Bold.ttf"

	// DefaultFontSize is the caption font size in pixels
	DefaultFontSize = 22

	paletteFilter = "[0:v] split [a][b];[a] palettegen [p];[b][p] paletteuse"
	concatFilter  = "[0:v] [1:v] concat=n=2:v=1:unsafe=true [v]"
)

// Transcoder implements media.Transcoder using ffmpeg
type Transcoder struct {
	ffmpegPath string
	runner     CommandRunner
	fontFile   string
	fontSize   int
	scratchDir string
	runID      string
	manifests  atomic.Int64
	log        *logrus.Entry
}

// TranscoderOption is a functional option for configuring Transcoder
type TranscoderOption func(*Transcoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) TranscoderOption {
	return func(t *Transcoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) TranscoderOption {
	return func(t *Transcoder) {
		t.runner = runner
	}
}

// WithFont sets the caption font file and size
func WithFont(file string, size int) TranscoderOption {
	return func(t *Transcoder) {
		if file != "" {
			t.fontFile = file
		}
		if size > 0 {
			t.fontSize = size
		}
	}
}

// WithScratchDir sets where strict-concat manifests are written
func WithScratchDir(dir string) TranscoderOption {
	return func(t *Transcoder) {
		t.scratchDir = dir
	}
}

// WithRunID sets the identifier that makes manifest names unique to a run
func WithRunID(id string) TranscoderOption {
	return func(t *Transcoder) {
		if id != "" {
			t.runID = id
		}
	}
}

// WithLogger sets the logger used for command lines and failures
func WithLogger(log *logrus.Entry) TranscoderOption {
	return func(t *Transcoder) {
		t.log = log
	}
}

// NewTranscoder creates a new FFmpeg-based transcoder
func NewTranscoder(opts ...TranscoderOption) *Transcoder {
	t := &Transcoder{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
		fontFile:   DefaultFontFile,
		fontSize:   DefaultFontSize,
		scratchDir: os.TempDir(),
		runID:      uuid.NewString(),
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.log = t.log.WithField("component", "ffmpeg")
	return t
}

// IsAvailable reports whether ffmpeg can be invoked at all
func (t *Transcoder) IsAvailable(ctx context.Context) bool {
	return t.VerifyInstalled(ctx) == nil
}

// VerifyInstalled checks that ffmpeg is available
func (t *Transcoder) VerifyInstalled(ctx context.Context) error {
	if _, err := t.runner.Output(ctx, t.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("%w: %v", media.ErrToolNotFound, err)
	}
	return nil
}

// Caption overlays text at the bottom centre of the frame
func (t *Transcoder) Caption(ctx context.Context, input, text, output string) (media.Process, error) {
	job := media.TranscodeJob{Kind: media.JobCaption, Inputs: []string{input}, Output: output, Text: text}
	args := []string{
		"-i", input,
		"-vf", t.drawText(text),
		"-y",
		output,
	}
	return t.spawn(ctx, job, args)
}

// Scale resizes with stream copy so both clips share one geometry
func (t *Transcoder) Scale(ctx context.Context, input string, size media.Size, output string) (media.Process, error) {
	if size.IsZero() {
		size = media.DefaultSize
	}
	job := media.TranscodeJob{Kind: media.JobScale, Inputs: []string{input}, Output: output, Size: size}
	args := []string{
		"-i", input,
		"-s", size.String(),
		"-c", "copy",
		"-y",
		output,
	}
	return t.spawn(ctx, job, args)
}

// ConvertToStill produces a palette-optimized GIF next to the input
func (t *Transcoder) ConvertToStill(ctx context.Context, input string) (media.Process, error) {
	output := media.WithExtension(input, string(media.FormatGIF))
	job := media.TranscodeJob{Kind: media.JobConvert, Inputs: []string{input}, Output: output}
	args := []string{
		"-i", input,
		"-y",
		"-filter_complex", paletteFilter,
		output,
	}
	return t.spawn(ctx, job, args)
}

// Concat joins first and second into output using the given strategy
func (t *Transcoder) Concat(ctx context.Context, strategy media.ConcatStrategy, first, second, output string) (media.Process, error) {
	switch strategy {
	case media.ConcatFlexible:
		return t.concatFlexible(ctx, first, second, output)
	case media.ConcatStrict, "":
		return t.concatStrict(ctx, first, second, output)
	default:
		return nil, fmt.Errorf("transcoder cannot run concat strategy %q", strategy)
	}
}

func (t *Transcoder) concatFlexible(ctx context.Context, first, second, output string) (media.Process, error) {
	job := media.TranscodeJob{Kind: media.JobConcatFlexible, Inputs: []string{first, second}, Output: output}
	args := []string{
		"-i", first,
		"-i", second,
		"-filter_complex", concatFilter,
		"-map", "[v]",
		"-y",
		output,
	}
	return t.spawn(ctx, job, args)
}

func (t *Transcoder) concatStrict(ctx context.Context, first, second, output string) (media.Process, error) {
	job := media.TranscodeJob{Kind: media.JobConcatStrict, Inputs: []string{first, second}, Output: output}

	manifest, err := t.writeManifest(first, second)
	if err != nil {
		return nil, &media.ProcessIOError{Kind: job.Kind, Err: err}
	}

	args := []string{
		"-safe", "0",
		"-f", "concat",
		"-i", manifest,
		"-c", "copy",
		"-y",
		output,
	}
	return t.spawn(ctx, job, args)
}

// ManifestPath returns the concat list path for the n-th strict concat of this run
func (t *Transcoder) ManifestPath(n int64) string {
	return filepath.Join(t.scratchDir, fmt.Sprintf("concat_%s_%d.txt", t.runID, n))
}

func (t *Transcoder) writeManifest(inputs ...string) (string, error) {
	if err := os.MkdirAll(t.scratchDir, 0755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}

	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	path := t.ManifestPath(t.manifests.Add(1))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}
	return path, nil
}

func (t *Transcoder) drawText(text string) string {
	return fmt.Sprintf(
		"drawtext=fontfile=%s:fontcolor=white:borderw=3:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)-20:expansion=none:text=%s",
		filterValue(t.fontFile), t.fontSize, filterValue(text),
	)
}

func (t *Transcoder) spawn(ctx context.Context, job media.TranscodeJob, args []string) (media.Process, error) {
	log := t.log.WithField("job", job.Kind)
	log.Debugf("%s %s", t.ffmpegPath, strings.Join(args, " "))

	w, err := t.runner.Start(ctx, t.ffmpegPath, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", media.ErrToolNotFound, err)
		}
		return nil, &media.ProcessIOError{Kind: job.Kind, Err: err}
	}
	return &process{job: job, waiter: w, log: log}, nil
}

// process is the media.Process handle for one spawned ffmpeg invocation
type process struct {
	job    media.TranscodeJob
	waiter Waiter
	log    *logrus.Entry

	once sync.Once
	err  error
}

func (p *process) Job() media.TranscodeJob {
	return p.job
}

// Wait blocks until ffmpeg exits; repeated calls return the same result
func (p *process) Wait() error {
	p.once.Do(func() {
		p.err = p.classify(p.waiter.Wait())
	})
	return p.err
}

func (p *process) classify(err error) error {
	if err == nil {
		p.log.WithField("output", p.job.Output).Debug("finished")
		return nil
	}

	if s, ok := p.waiter.(interface{ Stderr() string }); ok && s.Stderr() != "" {
		p.log.WithError(err).Errorf("ffmpeg stderr:\n%s", s.Stderr())
	}

	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return &media.ProcessingError{Kind: p.job.Kind, ExitCode: exitErr.ExitCode()}
	}
	return &media.ProcessIOError{Kind: p.job.Kind, Err: err}
}

// escapeText prepares caption text for a quoted drawtext value.
// Single quotes cannot appear inside the quoted value and become typographic apostrophes.
var optionEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)

// filterValue makes v safe as a filter option value.
// The option parser and the filtergraph parser each remove one level, so the
// option-escaped value is wrapped in single quotes and embedded quotes are spliced.
func filterValue(v string) string {
	v = optionEscaper.Replace(v)
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// Ensure Transcoder implements media.Transcoder
var _ media.Transcoder = (*Transcoder)(nil)
