package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	apphosting "time-for/application/hosting"
	"time-for/application/pipeline"
	"time-for/domain/history"
	"time-for/domain/hosting"
	"time-for/domain/media"
	"time-for/domain/presentation"
	"time-for/domain/search"
	"time-for/infrastructure/config"
	"time-for/infrastructure/desktop"
	"time-for/infrastructure/download"
	"time-for/infrastructure/ffmpeg"
	"time-for/infrastructure/filesystem"
	"time-for/infrastructure/geometry"
	historystore "time-for/infrastructure/history"
	"time-for/infrastructure/logging"
	"time-for/infrastructure/tenor"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	cfgErr   error
)

var (
	gifText           string
	gifConsideredGifs int
	gifNoUpload       bool
	gifExplorer       bool
	gifRelative       bool
	gifOpen           bool
	gifDelay          int
	gifFormat         string
	gifStrategy       string
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

var rootCmd = &cobra.Command{
	Use:   "time-for [query]",
	Short: "Make a \"look at the time\" reaction clip and share it",
	Long: `time-for builds a two-part reaction clip: someone looking at the time,
captioned with the current time, followed by a clip found for your query
captioned "time for <query>".

The clips come from Tenor, are scaled, captioned and stitched with ffmpeg,
uploaded to Imgur (or Google Drive) and the link is copied to the clipboard
and pasted into the focused window.

Examples:
  time-for coffee
  time-for lunch --text "LUNCH TIME" --considered-gifs 10
  time-for bed --delay 600 --no-upload --open
  time-for --format gif`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGif,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		if pipeline.IsSetupError(err) {
			fmt.Fprintln(os.Stderr, "Install ffmpeg and make sure it is on your PATH (or set ffmpeg.path with 'time-for config set').")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level: trace, debug, info, warn, error")

	flags := rootCmd.Flags()
	flags.StringVarP(&gifText, "text", "t", "", "Custom caption for the query clip instead of \"time for <query>\"")
	flags.IntVarP(&gifConsideredGifs, "considered-gifs", "c", media.DefaultConsideredGifs, "Number of search results to pick the query clip from")
	flags.BoolVarP(&gifNoUpload, "no-upload", "n", false, "Skip the upload and hand over the local file path")
	flags.BoolVarP(&gifExplorer, "explorer", "x", false, "Show the created file in the file manager")
	flags.BoolVarP(&gifRelative, "relative", "r", false, "Work in ./time-for instead of the temp directory")
	flags.BoolVarP(&gifOpen, "open", "o", false, "Open the created file in the default application")
	flags.IntVarP(&gifDelay, "delay", "d", 0, "Seconds to add to the time shown on the clip")
	flags.StringVar(&gifFormat, "format", string(media.FormatWebM), "Output format: webm or gif")
	flags.StringVar(&gifStrategy, "strategy", "", "Stitch strategy: strict, flexible or auto (default from config)")
}

func initConfig() {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	cfg, cfgErr = config.LoadOrDefault(cfgFile)
	if cfgErr != nil {
		cfg = nil
		return
	}
	cfg.ApplyEnv(os.Getenv)
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

func requireConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("could not load %s: %w", cfgFile, cfgErr)
	}
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func newLogger(c *config.Config) (*logrus.Logger, error) {
	return logging.New(c.Log.Level, os.Stderr)
}

func runGif(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	if gifText != "" && query == "" {
		log.Warn("--text only captions the query clip and is ignored without a query")
	}

	strategy := gifStrategy
	if strategy == "" {
		strategy = c.Stitch.Strategy
	}

	req, err := media.NewPipelineRequest(query, gifText, gifConsideredGifs, gifDelay, gifFormat, strategy)
	if err != nil {
		return err
	}
	req.NoUpload = gifNoUpload
	req.Explorer = gifExplorer
	req.Relative = gifRelative
	req.Open = gifOpen

	deps, err := buildGifDependencies(c, req, log, os.Stdout)
	if err != nil {
		return err
	}

	_, err = RunGifWithDependencies(cmd.Context(), deps, req, os.Stdout)
	return err
}

// GifDependencies are the collaborators of one pipeline run.
// Uploader and Recorder may be left nil and created through NewUploader and
// OpenRecorder, which only run once the transcoder is known to be available.
type GifDependencies struct {
	Searcher     search.Searcher
	Downloader   pipeline.Downloader
	Transcoder   media.Transcoder
	Probe        media.GeometryProbe
	Uploader     hosting.Uploader
	NewUploader  func(ctx context.Context) (hosting.Uploader, error)
	Presenter    presentation.Presenter
	FS           pipeline.FileSystem
	Recorder     history.Recorder
	OpenRecorder func() (history.Recorder, func() error, error)
	Settings     pipeline.Settings
	Logger       *logrus.Entry

	// RunID names the run in logs, history and scratch files; generated by the pipeline when empty
	RunID string
}

// buildGifDependencies wires the production adapters from configuration.
// Nothing here touches the network or the history database.
func buildGifDependencies(c *config.Config, req *media.PipelineRequest, log *logrus.Logger, out io.Writer) (GifDependencies, error) {
	entry := logrus.NewEntry(log)

	workDir, err := filesystem.ResolveWorkDir(c.Paths.WorkDirectory, req.Relative)
	if err != nil {
		return GifDependencies{}, fmt.Errorf("could not resolve working directory: %w", err)
	}

	settings := pipeline.DefaultSettings(workDir)
	settings.ReferenceQuery = c.Tenor.ReferenceQuery
	settings.ReferenceCandidates = c.Tenor.ReferenceCandidates
	settings.ScaleSize = media.Size{Width: c.FFmpeg.ScaleWidth, Height: c.FFmpeg.ScaleHeight}

	runID := uuid.NewString()
	deps := GifDependencies{
		Searcher: tenor.NewClient(c.Tenor.APIKey,
			tenor.WithBaseURL(c.Tenor.BaseURL),
			tenor.WithMediaFormat(c.Tenor.MediaFormat),
			tenor.WithLogger(entry),
		),
		Downloader: download.NewDownloader(download.WithLogger(entry)),
		Transcoder: ffmpeg.NewTranscoder(
			ffmpeg.WithFFmpegPath(c.FFmpeg.Path),
			ffmpeg.WithFont(c.FFmpeg.FontFile, c.FFmpeg.FontSize),
			ffmpeg.WithScratchDir(workDir),
			ffmpeg.WithRunID(runID),
			ffmpeg.WithLogger(entry),
		),
		Probe:     geometry.NewProbe(),
		Presenter: desktop.NewPresenter(desktop.WithOutput(out), desktop.WithLogger(entry)),
		FS:        filesystem.NewFS(),
		Settings:  settings,
		Logger:    entry,
		RunID:     runID,
	}

	// Drive OAuth may refresh a token or open a browser, so the client is built lazily
	deps.NewUploader = func(ctx context.Context) (hosting.Uploader, error) {
		up, provider, err := newUploader(ctx, c, log, out)
		if err != nil {
			return nil, &hosting.UploadFailure{Provider: c.Hosting.Provider, Err: err}
		}
		return apphosting.NewService(up, provider, out), nil
	}

	if c.History.Enabled {
		deps.OpenRecorder = func() (history.Recorder, func() error, error) {
			store, err := historystore.Open(c.History.Database, entry)
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		}
	}

	return deps, nil
}

// RunGifWithDependencies runs the pipeline with injected dependencies (for testing)
func RunGifWithDependencies(ctx context.Context, deps GifDependencies, req *media.PipelineRequest, output io.Writer) (*pipeline.Result, error) {
	log := deps.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	// Nothing touches the disk or the network until ffmpeg is known to exist
	if !deps.Transcoder.IsAvailable(ctx) {
		return nil, media.ErrToolNotFound
	}

	if deps.Uploader == nil && deps.NewUploader != nil && !req.NoUpload {
		up, err := deps.NewUploader(ctx)
		if err != nil {
			log.WithError(err).Warn("uploader unavailable, the local path will be presented")
			up = apphosting.Unavailable(err)
		}
		deps.Uploader = up
	}

	if deps.Recorder == nil && deps.OpenRecorder != nil {
		rec, closeStore, err := deps.OpenRecorder()
		if err != nil {
			log.WithError(err).Warn("run history disabled")
		} else {
			deps.Recorder = rec
			defer closeStore()
		}
	}

	opts := []pipeline.ServiceOption{
		pipeline.WithOutput(output),
	}
	if deps.Probe != nil {
		opts = append(opts, pipeline.WithGeometryProbe(deps.Probe))
	}
	if deps.Recorder != nil {
		opts = append(opts, pipeline.WithRecorder(deps.Recorder))
	}
	if deps.Logger != nil {
		opts = append(opts, pipeline.WithLogger(deps.Logger))
	}
	if deps.RunID != "" {
		opts = append(opts, pipeline.WithRunIDs(func() string { return deps.RunID }))
	}

	svc := pipeline.NewService(
		deps.Searcher,
		deps.Downloader,
		deps.Transcoder,
		deps.Uploader,
		deps.Presenter,
		deps.FS,
		deps.Settings,
		opts...,
	)

	return svc.Run(ctx, req)
}
