package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"time-for/domain/media"

	"github.com/sirupsen/logrus"
)

// mockRunner records every command it is asked to start
type mockRunner struct {
	mu        sync.Mutex
	calls     [][]string
	startErr  error
	waitErr   error
	outputErr error
}

func (m *mockRunner) Start(ctx context.Context, name string, args ...string) (Waiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.startErr != nil {
		return nil, m.startErr
	}
	return &mockWaiter{err: m.waitErr}, nil
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if m.outputErr != nil {
		return nil, m.outputErr
	}
	return []byte("ffmpeg version 6.1"), nil
}

func (m *mockRunner) lastCall() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

type mockWaiter struct {
	err   error
	waits int
}

func (w *mockWaiter) Wait() error {
	w.waits++
	return w.err
}

// exitCodeError mimics *exec.ExitError
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitCodeError) ExitCode() int { return e.code }

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestTranscoder(t *testing.T, runner *mockRunner, opts ...TranscoderOption) *Transcoder {
	t.Helper()
	base := []TranscoderOption{
		WithCommandRunner(runner),
		WithScratchDir(t.TempDir()),
		WithRunID("run1"),
		WithLogger(quietLogger()),
	}
	return NewTranscoder(append(base, opts...)...)
}

func TestTranscoder_Scale(t *testing.T) {
	runner := &mockRunner{}
	tr := newTestTranscoder(t, runner)

	p, err := tr.Scale(context.Background(), "in.webm", media.Size{}, "in_scaled.webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}

	want := []string{"ffmpeg", "-i", "in.webm", "-s", "480x270", "-c", "copy", "-y", "in_scaled.webm"}
	if got := runner.lastCall(); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", got, want)
	}
	if p.Job().Kind != media.JobScale || p.Job().Size != media.DefaultSize {
		t.Errorf("job = %+v", p.Job())
	}
}

func TestTranscoder_ScaleCustomSize(t *testing.T) {
	runner := &mockRunner{}
	tr := newTestTranscoder(t, runner, WithFFmpegPath("/opt/ffmpeg"))

	if _, err := tr.Scale(context.Background(), "a.webm", media.Size{Width: 640, Height: 360}, "b.webm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := runner.lastCall()
	if got[0] != "/opt/ffmpeg" || got[4] != "640x360" {
		t.Errorf("args = %v", got)
	}
}

func TestTranscoder_CaptionEscapesText(t *testing.T) {
	runner := &mockRunner{}
	tr := newTestTranscoder(t, runner, WithFont("C:\\fonts\\Bold.ttf", 30))

	if _, err := tr.Caption(context.Background(), "in.webm", "It is 14:05:09 o'clock", "out.webm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := runner.lastCall()
	if len(args) != 7 || args[3] != "-vf" {
		t.Fatalf("args = %v", args)
	}
	filter := args[4]

	for _, want := range []string{
		`fontfile='C\:\\fonts\\Bold.ttf':`,
		"fontsize=30",
		"borderw=3",
		"x=(w-text_w)/2",
		"y=(h-text_h)-20",
		`text='It is 14\:05\:09 o\'\''clock'`,
	} {
		if !strings.Contains(filter, want) {
			t.Errorf("filter %q missing %q", filter, want)
		}
	}
}

func TestFilterValue(t *testing.T) {
	tests := map[string]string{
		"time for coffee":         `'time for coffee'`,
		"12:30":                   `'12\:30'`,
		`back\slash`:              `'back\\slash'`,
		"it's":                    `'it\'\''s'`,
		"50% off":                 `'50% off'`,
		`C:\fonts\Montserrat.ttf`: `'C\:\\fonts\\Montserrat.ttf'`,
		"[a],[b];c":               `'[a],[b];c'`,
	}
	for in, want := range tests {
		if got := filterValue(in); got != want {
			t.Errorf("filterValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranscoder_ConvertToStill(t *testing.T) {
	runner := &mockRunner{}
	tr := newTestTranscoder(t, runner)

	p, err := tr.ConvertToStill(context.Background(), filepath.Join("w", "full.webm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Job().Output != filepath.Join("w", "full.gif") {
		t.Errorf("output = %q", p.Job().Output)
	}
	args := runner.lastCall()
	if args[len(args)-1] != filepath.Join("w", "full.gif") || args[4] != "-filter_complex" || args[5] != paletteFilter {
		t.Errorf("args = %v", args)
	}
}

func TestTranscoder_ConcatFlexible(t *testing.T) {
	runner := &mockRunner{}
	tr := newTestTranscoder(t, runner)

	p, err := tr.Concat(context.Background(), media.ConcatFlexible, "a.webm", "b.webm", "full.webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Job().Kind != media.JobConcatFlexible {
		t.Errorf("kind = %q", p.Job().Kind)
	}
	want := []string{"ffmpeg", "-i", "a.webm", "-i", "b.webm", "-filter_complex", concatFilter, "-map", "[v]", "-y", "full.webm"}
	if got := runner.lastCall(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestTranscoder_ConcatStrictWritesManifest(t *testing.T) {
	runner := &mockRunner{}
	tr := newTestTranscoder(t, runner)

	dir := t.TempDir()
	first := filepath.Join(dir, "look_at_time_text.webm")
	second := filepath.Join(dir, "query_text.webm")

	p, err := tr.Concat(context.Background(), media.ConcatStrict, first, second, filepath.Join(dir, "full.webm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Job().Kind != media.JobConcatStrict {
		t.Errorf("kind = %q", p.Job().Kind)
	}

	args := runner.lastCall()
	manifest := args[6]
	if manifest != tr.ManifestPath(1) {
		t.Errorf("manifest = %q, want %q", manifest, tr.ManifestPath(1))
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	want := fmt.Sprintf("file '%s'\nfile '%s'\n", first, second)
	if string(data) != want {
		t.Errorf("manifest = %q, want %q", string(data), want)
	}
	if args[1] != "-safe" || args[3] != "-f" || args[4] != "concat" || args[8] != "copy" {
		t.Errorf("args = %v", args)
	}
}

func TestTranscoder_ManifestPathsAreUniquePerRunAndCall(t *testing.T) {
	dir := t.TempDir()
	a := NewTranscoder(WithCommandRunner(&mockRunner{}), WithScratchDir(dir), WithLogger(quietLogger()))
	b := NewTranscoder(WithCommandRunner(&mockRunner{}), WithScratchDir(dir), WithLogger(quietLogger()))

	if a.ManifestPath(1) == b.ManifestPath(1) {
		t.Errorf("two runs share manifest path %q", a.ManifestPath(1))
	}
	if a.ManifestPath(1) == a.ManifestPath(2) {
		t.Errorf("two calls share manifest path %q", a.ManifestPath(1))
	}
}

func TestTranscoder_ConcatUnknownStrategy(t *testing.T) {
	tr := newTestTranscoder(t, &mockRunner{})
	if _, err := tr.Concat(context.Background(), media.ConcatAuto, "a", "b", "c"); err == nil {
		t.Fatal("expected error for unresolved auto strategy")
	}
}

func TestTranscoder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		runner     *mockRunner
		wantSpawn  func(error) bool
		wantWait   func(error) bool
		spawnFails bool
	}{
		{
			name:       "missing binary is ToolNotFound",
			runner:     &mockRunner{startErr: &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}},
			spawnFails: true,
			wantSpawn:  func(err error) bool { return errors.Is(err, media.ErrToolNotFound) },
		},
		{
			name:       "other spawn failure is ProcessIOError",
			runner:     &mockRunner{startErr: errors.New("too many open files")},
			spawnFails: true,
			wantSpawn: func(err error) bool {
				var pe *media.ProcessIOError
				return errors.As(err, &pe) && pe.Kind == media.JobScale
			},
		},
		{
			name:   "non-zero exit is ProcessingError with code",
			runner: &mockRunner{waitErr: &exitCodeError{code: 1}},
			wantWait: func(err error) bool {
				var pe *media.ProcessingError
				return errors.As(err, &pe) && pe.ExitCode == 1 && strings.Contains(err.Error(), "exit code 1")
			},
		},
		{
			name:   "killed process reports no exit code",
			runner: &mockRunner{waitErr: &exitCodeError{code: -1}},
			wantWait: func(err error) bool {
				var pe *media.ProcessingError
				return errors.As(err, &pe) && strings.Contains(err.Error(), "exit code None")
			},
		},
		{
			name:   "wait failure is ProcessIOError",
			runner: &mockRunner{waitErr: errors.New("wait: no child processes")},
			wantWait: func(err error) bool {
				var pe *media.ProcessIOError
				return errors.As(err, &pe)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranscoder(t, tt.runner)
			p, err := tr.Scale(context.Background(), "in.webm", media.DefaultSize, "out.webm")
			if tt.spawnFails {
				if err == nil || !tt.wantSpawn(err) {
					t.Fatalf("spawn error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected spawn error: %v", err)
			}
			werr := p.Wait()
			if !tt.wantWait(werr) {
				t.Fatalf("wait error = %v", werr)
			}
			if again := p.Wait(); again != werr {
				t.Errorf("second Wait returned %v, want %v", again, werr)
			}
		})
	}
}

func TestTranscoder_IsAvailable(t *testing.T) {
	ok := newTestTranscoder(t, &mockRunner{})
	if !ok.IsAvailable(context.Background()) {
		t.Error("expected ffmpeg to be available")
	}

	missing := newTestTranscoder(t, &mockRunner{outputErr: exec.ErrNotFound})
	if missing.IsAvailable(context.Background()) {
		t.Error("expected ffmpeg to be unavailable")
	}
	if err := missing.VerifyInstalled(context.Background()); !errors.Is(err, media.ErrToolNotFound) {
		t.Errorf("VerifyInstalled() = %v, want ErrToolNotFound", err)
	}
}
