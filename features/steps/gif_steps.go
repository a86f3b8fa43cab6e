//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"time-for/application/hosting"
	"time-for/application/pipeline"
	"time-for/cmd"
	"time-for/domain/history"
	domainhosting "time-for/domain/hosting"
	"time-for/domain/media"
	"time-for/infrastructure/desktop"
	"time-for/infrastructure/download"
	"time-for/infrastructure/ffmpeg"
	"time-for/infrastructure/filesystem"
	"time-for/infrastructure/geometry"
	historystore "time-for/infrastructure/history"
	"time-for/infrastructure/imgur"
	"time-for/infrastructure/tenor"

	"github.com/cucumber/godog"
)

// exitError mimics the exit status of a failed ffmpeg
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

// fakeFFmpeg implements ffmpeg.CommandRunner; every started command writes its output file
type fakeFFmpeg struct {
	mu       sync.Mutex
	missing  bool
	failOn   string
	commands [][]string
}

func (f *fakeFFmpeg) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.missing {
		return nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return []byte("ffmpeg version 6.1-fake"), nil
}

func (f *fakeFFmpeg) Start(ctx context.Context, name string, args ...string) (ffmpeg.Waiter, error) {
	if f.missing {
		return nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	f.mu.Lock()
	f.commands = append(f.commands, args)
	f.mu.Unlock()

	return &fakeWaiter{
		output: args[len(args)-1],
		fail:   f.failOn != "" && commandKind(args) == f.failOn,
	}, nil
}

func (f *fakeFFmpeg) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, args := range f.commands {
		if commandKind(args) == kind {
			n++
		}
	}
	return n
}

func (f *fakeFFmpeg) captions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var filters []string
	for _, args := range f.commands {
		if commandKind(args) == "caption" {
			filters = append(filters, args[slices.Index(args, "-vf")+1])
		}
	}
	return filters
}

// commandKind recognizes which transformation an ffmpeg argument list performs
func commandKind(args []string) string {
	joined := strings.Join(args, " ")
	switch {
	case slices.Contains(args, "-vf"):
		return "caption"
	case strings.Contains(joined, "palettegen"):
		return "convert"
	case strings.Contains(joined, "-f concat"), strings.Contains(joined, "concat=n=2"):
		return "concat"
	case slices.Contains(args, "-s"):
		return "scale"
	default:
		return "unknown"
	}
}

type fakeWaiter struct {
	output string
	fail   bool
}

func (w *fakeWaiter) Wait() error {
	if w.fail {
		return &exitError{code: 1}
	}
	return os.WriteFile(w.output, []byte("encoded "+filepath.Base(w.output)), 0644)
}

// noopRunner implements desktop.CommandRunner; nothing is pasted during tests
type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, name string, args ...string) error { return nil }

// noopOpener implements desktop.Opener
type noopOpener struct{}

func (noopOpener) OpenFile(path string) error { return nil }

type gifContext struct {
	workDir        string
	historyPath    string
	uploaderBroken bool
	uploaderBuilds int
	ffmpeg         *fakeFFmpeg
	output         *bytes.Buffer
	result         *pipeline.Result
	err            error
}

var SharedGifContext = &gifContext{}

func InitializeGifScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedGifContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.workDir = ""
		testCtx.historyPath = ""
		testCtx.uploaderBroken = false
		testCtx.uploaderBuilds = 0
		testCtx.ffmpeg = &fakeFFmpeg{}
		testCtx.output = &bytes.Buffer{}
		testCtx.result = nil
		testCtx.err = nil
		return c, nil
	})

	ctx.Step(`^ffmpeg is not installed$`, testCtx.ffmpegIsNotInstalled)
	ctx.Step(`^ffmpeg fails on "([^"]*)"$`, testCtx.ffmpegFailsOn)
	ctx.Step(`^the uploader cannot be created$`, testCtx.theUploaderCannotBeCreated)

	ctx.Step(`^I run time-for with query "([^"]*)"$`, testCtx.iRunTimeForWithQuery)
	ctx.Step(`^I run time-for with query "([^"]*)" and text "([^"]*)"$`, testCtx.iRunTimeForWithQueryAndText)
	ctx.Step(`^I run time-for with query "([^"]*)" and flag "([^"]*)"$`, testCtx.iRunTimeForWithQueryAndFlag)
	ctx.Step(`^I run time-for without a query$`, testCtx.iRunTimeForWithoutAQuery)
	ctx.Step(`^I run time-for without a query and text "([^"]*)"$`, testCtx.iRunTimeForWithoutAQueryAndText)

	ctx.Step(`^the run should succeed$`, testCtx.theRunShouldSucceed)
	ctx.Step(`^the run should fail with "([^"]*)"$`, testCtx.theRunShouldFailWith)
	ctx.Step(`^the run output should contain "([^"]*)"$`, testCtx.theRunOutputShouldContain)
	ctx.Step(`^tenor should have been searched for "([^"]*)" with limit (\d+)$`, testCtx.tenorShouldHaveBeenSearchedFor)
	ctx.Step(`^tenor should have received (\d+) searche?s?$`, testCtx.tenorShouldHaveReceivedSearches)
	ctx.Step(`^ffmpeg should have run (\d+) "([^"]*)" commands$`, testCtx.ffmpegShouldHaveRunCommands)
	ctx.Step(`^ffmpeg should have captioned a clip with "([^"]*)"$`, testCtx.ffmpegShouldHaveCaptionedAClipWith)
	ctx.Step(`^the clipboard should hold the path of "([^"]*)"$`, testCtx.theClipboardShouldHoldThePathOf)
	ctx.Step(`^the work directory should contain "([^"]*)"$`, testCtx.theWorkDirectoryShouldContain)
	ctx.Step(`^the history should show a (succeeded|failed) run for "([^"]*)"$`, testCtx.theHistoryShouldShowARunFor)
	ctx.Step(`^no run history should have been written$`, testCtx.noRunHistoryShouldHaveBeenWritten)
	ctx.Step(`^the uploader should not have been created$`, testCtx.theUploaderShouldNotHaveBeenCreated)
}

func (g *gifContext) ffmpegIsNotInstalled() error {
	g.ffmpeg.missing = true
	return nil
}

func (g *gifContext) ffmpegFailsOn(kind string) error {
	g.ffmpeg.failOn = kind
	return nil
}

func (g *gifContext) theUploaderCannotBeCreated() error {
	g.uploaderBroken = true
	return nil
}

func (g *gifContext) iRunTimeForWithQuery(query string) error {
	return g.run(query, "")
}

func (g *gifContext) iRunTimeForWithQueryAndText(query, text string) error {
	return g.run(query, text)
}

func (g *gifContext) iRunTimeForWithQueryAndFlag(query, flag string) error {
	return g.run(query, "", strings.Fields(flag)...)
}

func (g *gifContext) iRunTimeForWithoutAQuery() error {
	return g.run("", "")
}

func (g *gifContext) iRunTimeForWithoutAQueryAndText(text string) error {
	return g.run("", text)
}

func (g *gifContext) run(query, text string, flags ...string) error {
	svc := SharedServices
	g.workDir = filepath.Join(svc.tempDir, "work")
	g.historyPath = filepath.Join(svc.tempDir, "history.db")

	format, noUpload := "", false
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case "--no-upload":
			noUpload = true
		case "--format":
			i++
			format = flags[i]
		default:
			return fmt.Errorf("unsupported flag %q", flags[i])
		}
	}

	req, err := media.NewPipelineRequest(query, text, media.DefaultConsideredGifs, 0, format, "")
	if err != nil {
		return err
	}
	req.NoUpload = noUpload

	log := quietLogger()
	deps := cmd.GifDependencies{
		Searcher: tenor.NewClient("test-key",
			tenor.WithBaseURL(svc.tenor.URL),
			tenor.WithHTTPClient(svc.tenor.Client()),
			tenor.WithLogger(log),
		),
		Downloader: download.NewDownloader(
			download.WithHTTPClient(svc.tenor.Client()),
			download.WithLogger(log),
		),
		Transcoder: ffmpeg.NewTranscoder(
			ffmpeg.WithCommandRunner(g.ffmpeg),
			ffmpeg.WithScratchDir(g.workDir),
			ffmpeg.WithLogger(log),
		),
		Probe: geometry.NewProbe(),
		Presenter: desktop.NewPresenter(
			desktop.WithClipboard(svc.clipboard),
			desktop.WithCommandRunner(noopRunner{}),
			desktop.WithOpener(noopOpener{}),
			desktop.WithOutput(g.output),
			desktop.WithLogger(log),
		),
		FS:       filesystem.NewFS(),
		Settings: pipeline.DefaultSettings(g.workDir),
		Logger:   log,
		OpenRecorder: func() (history.Recorder, func() error, error) {
			store, err := historystore.Open(g.historyPath, quietLogger())
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		},
		NewUploader: func(ctx context.Context) (domainhosting.Uploader, error) {
			g.uploaderBuilds++
			if g.uploaderBroken {
				return nil, &domainhosting.UploadFailure{Provider: "drive", Err: errors.New("open config/credentials.json: no such file or directory")}
			}
			client := imgur.NewClient("test-client",
				imgur.WithBaseURL(svc.imgur.URL),
				imgur.WithHTTPClient(svc.imgur.Client()),
				imgur.WithLogger(log),
			)
			return hosting.NewService(client, "imgur", g.output), nil
		},
	}

	g.result, g.err = cmd.RunGifWithDependencies(context.Background(), deps, req, g.output)
	return nil
}

func (g *gifContext) theRunShouldSucceed() error {
	if g.err != nil {
		return fmt.Errorf("expected success, got error: %v\noutput:\n%s", g.err, g.output.String())
	}
	return nil
}

func (g *gifContext) theRunShouldFailWith(msg string) error {
	if g.err == nil {
		return fmt.Errorf("expected error containing %q, got success", msg)
	}
	if !strings.Contains(g.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got: %v", msg, g.err)
	}
	return nil
}

func (g *gifContext) theRunOutputShouldContain(text string) error {
	if !strings.Contains(g.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, g.output.String())
	}
	return nil
}

func (g *gifContext) tenorShouldHaveBeenSearchedFor(query string, limit int) error {
	got, ok := SharedServices.searchLimit(query)
	if !ok {
		return fmt.Errorf("tenor was never searched for %q", query)
	}
	if got != fmt.Sprint(limit) {
		return fmt.Errorf("expected limit %d for %q, got %s", limit, query, got)
	}
	return nil
}

func (g *gifContext) tenorShouldHaveReceivedSearches(count int) error {
	if got := SharedServices.totalSearches(); got != count {
		return fmt.Errorf("expected %d searches, got %d", count, got)
	}
	return nil
}

func (g *gifContext) ffmpegShouldHaveRunCommands(count int, kind string) error {
	if got := g.ffmpeg.count(kind); got != count {
		return fmt.Errorf("expected %d %s commands, got %d", count, kind, got)
	}
	return nil
}

func (g *gifContext) ffmpegShouldHaveCaptionedAClipWith(text string) error {
	filters := g.ffmpeg.captions()
	for _, f := range filters {
		if strings.Contains(f, "text='"+text+"'") {
			return nil
		}
	}
	return fmt.Errorf("no caption with %q among %v", text, filters)
}

func (g *gifContext) theClipboardShouldHoldThePathOf(name string) error {
	want := filepath.Join(g.workDir, name)
	if got := SharedServices.clipboard.Text(); got != want {
		return fmt.Errorf("expected clipboard to hold %q, got %q", want, got)
	}
	return nil
}

func (g *gifContext) theWorkDirectoryShouldContain(name string) error {
	if _, err := os.Stat(filepath.Join(g.workDir, name)); err != nil {
		return fmt.Errorf("expected %s in work directory: %w", name, err)
	}
	return nil
}

func (g *gifContext) theHistoryShouldShowARunFor(status, query string) error {
	store, err := historystore.Open(g.historyPath, quietLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	var out bytes.Buffer
	if err := cmd.RunHistoryWithDependencies(context.Background(), store, 10, &out); err != nil {
		return err
	}

	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, status) && strings.Contains(line, query) {
			return nil
		}
	}
	return fmt.Errorf("no %s run for %q in history:\n%s", status, query, out.String())
}

func (g *gifContext) noRunHistoryShouldHaveBeenWritten() error {
	if _, err := os.Stat(g.historyPath); !os.IsNotExist(err) {
		return fmt.Errorf("expected no history database at %s", g.historyPath)
	}
	return nil
}

func (g *gifContext) theUploaderShouldNotHaveBeenCreated() error {
	if g.uploaderBuilds != 0 {
		return fmt.Errorf("expected no uploader, it was created %d times", g.uploaderBuilds)
	}
	return nil
}
