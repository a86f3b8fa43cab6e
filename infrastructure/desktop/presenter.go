package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"time-for/domain/presentation"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

// Clipboard holds text for the user to paste
type Clipboard interface {
	WriteAll(text string) error
}

// Opener hands a path to the desktop's default application
type Opener interface {
	OpenFile(path string) error
}

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// SystemClipboard writes through the OS clipboard
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if text == "" {
		return errors.New("nothing to copy")
	}
	return clipboard.WriteAll(text)
}

// BrowserOpener opens files with the default application
type BrowserOpener struct{}

func (BrowserOpener) OpenFile(path string) error {
	return browser.OpenFile(path)
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Presenter implements presentation.Presenter on the local desktop
type Presenter struct {
	clipboard Clipboard
	opener    Opener
	runner    CommandRunner
	goos      string
	autoPaste bool
	out       io.Writer
	log       *logrus.Entry
}

// PresenterOption is a functional option for configuring Presenter
type PresenterOption func(*Presenter)

// WithClipboard sets a custom clipboard (for testing)
func WithClipboard(c Clipboard) PresenterOption {
	return func(p *Presenter) {
		p.clipboard = c
	}
}

// WithOpener sets a custom opener (for testing)
func WithOpener(o Opener) PresenterOption {
	return func(p *Presenter) {
		p.opener = o
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(r CommandRunner) PresenterOption {
	return func(p *Presenter) {
		p.runner = r
	}
}

// WithGOOS overrides the platform used to pick paste and reveal commands
func WithGOOS(goos string) PresenterOption {
	return func(p *Presenter) {
		p.goos = goos
	}
}

// WithAutoPaste toggles the simulated paste keystroke
func WithAutoPaste(enabled bool) PresenterOption {
	return func(p *Presenter) {
		p.autoPaste = enabled
	}
}

// WithOutput sets where the link or path is printed
func WithOutput(w io.Writer) PresenterOption {
	return func(p *Presenter) {
		p.out = w
	}
}

// WithLogger sets the presenter logger
func WithLogger(log *logrus.Entry) PresenterOption {
	return func(p *Presenter) {
		p.log = log
	}
}

// NewPresenter creates a desktop presenter
func NewPresenter(opts ...PresenterOption) *Presenter {
	p := &Presenter{
		clipboard: SystemClipboard{},
		opener:    BrowserOpener{},
		runner:    ExecCommandRunner{},
		goos:      runtime.GOOS,
		autoPaste: true,
		out:       os.Stdout,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.log = p.log.WithField("component", "desktop")
	return p
}

// Present prints the target, copies it, pastes it and runs the requested post-actions.
// Every step is attempted; failures are logged and returned together.
func (p *Presenter) Present(ctx context.Context, pr presentation.Presentation) error {
	target := pr.Target()
	fmt.Fprintln(p.out, target)
	p.log.WithField("uploaded", pr.HasLink()).Debug("presenting result")

	var errs []error
	warn := func(step string, err error) {
		if err == nil {
			return
		}
		p.log.WithError(err).Warnf("%s failed", step)
		errs = append(errs, fmt.Errorf("%s: %w", step, err))
	}

	copyErr := p.clipboard.WriteAll(target)
	warn("copy to clipboard", copyErr)

	if p.autoPaste && copyErr == nil {
		if name, args, ok := pasteCommand(p.goos); ok {
			warn("paste", p.runner.Run(ctx, name, args...))
		}
	}

	if pr.Explorer && pr.LocalPath != "" {
		warn("reveal in file browser", p.reveal(ctx, pr.LocalPath))
	}

	if pr.Open && pr.LocalPath != "" {
		warn("open file", p.opener.OpenFile(pr.LocalPath))
	}

	return errors.Join(errs...)
}

func (p *Presenter) reveal(ctx context.Context, path string) error {
	if p.goos == "windows" {
		// explorer exits 1 even when it succeeds
		_ = p.runner.Run(ctx, "explorer", "/select,"+path)
		return nil
	}
	return p.opener.OpenFile(filepath.Dir(path))
}

// pasteCommand returns the platform command that sends the paste shortcut to the foreground window
func pasteCommand(goos string) (string, []string, bool) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdotool", []string{"key", "--clearmodifiers", "ctrl+v"}, true
	case "darwin":
		return "osascript", []string{"-e", `tell application "System Events" to keystroke "v" using command down`}, true
	case "windows":
		return "powershell", []string{"-NoProfile", "-Command", `(New-Object -ComObject WScript.Shell).SendKeys('^v')`}, true
	default:
		return "", nil, false
	}
}

// Ensure Presenter implements presentation.Presenter
var _ presentation.Presenter = (*Presenter)(nil)
