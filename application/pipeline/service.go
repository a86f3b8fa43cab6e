package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"time-for/domain/history"
	"time-for/domain/hosting"
	"time-for/domain/media"
	"time-for/domain/presentation"
	"time-for/domain/search"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Downloader fetches a URL to a local file
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// FileSystem abstracts the workspace operations of a run
type FileSystem interface {
	EnsureDir(dir string) error
	Rename(src, dst string) error
}

// Asset file names inside the work directory
const (
	QueryFileName     = "query.webm"
	ReferenceFileName = "look_at_time.webm"
	FinalFileName     = "full.webm"
)

// Settings are the per-installation knobs of the pipeline
type Settings struct {
	WorkDir             string
	ReferenceQuery      string
	ReferenceCandidates int
	ScaleSize           media.Size
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings(workDir string) Settings {
	return Settings{
		WorkDir:             workDir,
		ReferenceQuery:      "look at time",
		ReferenceCandidates: 16,
		ScaleSize:           media.DefaultSize,
	}
}

// Service runs the media-assembly pipeline
type Service struct {
	searcher   search.Searcher
	downloader Downloader
	transcoder media.Transcoder
	probe      media.GeometryProbe
	uploader   hosting.Uploader
	presenter  presentation.Presenter
	recorder   history.Recorder
	fs         FileSystem
	settings   Settings
	output     io.Writer
	log        *logrus.Entry
	now        func() time.Time
	newRunID   func() string
}

// ServiceOption is a functional option for configuring Service
type ServiceOption func(*Service)

// WithGeometryProbe enables the auto stitch strategy
func WithGeometryProbe(p media.GeometryProbe) ServiceOption {
	return func(s *Service) {
		s.probe = p
	}
}

// WithRecorder stores every finished run
func WithRecorder(r history.Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithOutput sets where progress lines are written
func WithOutput(w io.Writer) ServiceOption {
	return func(s *Service) {
		s.output = w
	}
}

// WithLogger sets the service logger
func WithLogger(log *logrus.Entry) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithClock sets the time source used for the timestamp caption (for testing)
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithRunIDs sets the run identifier generator (for testing)
func WithRunIDs(gen func() string) ServiceOption {
	return func(s *Service) {
		s.newRunID = gen
	}
}

// NewService creates a new pipeline service
func NewService(
	searcher search.Searcher,
	downloader Downloader,
	transcoder media.Transcoder,
	uploader hosting.Uploader,
	presenter presentation.Presenter,
	fs FileSystem,
	settings Settings,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		searcher:   searcher,
		downloader: downloader,
		transcoder: transcoder,
		uploader:   uploader,
		presenter:  presenter,
		fs:         fs,
		settings:   settings,
		output:     io.Discard,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.settings.ReferenceQuery == "" {
		s.settings.ReferenceQuery = "look at time"
	}
	if s.settings.ReferenceCandidates <= 0 {
		s.settings.ReferenceCandidates = 16
	}
	if s.settings.ScaleSize.IsZero() {
		s.settings.ScaleSize = media.DefaultSize
	}

	s.log = s.log.WithField("component", "pipeline")
	return s
}

// Result describes a finished run
type Result struct {
	RunID      string
	OutputPath string
	Link       string
	Strategy   media.ConcatStrategy
	States     []State
	Elapsed    time.Duration
}

// Uploaded returns true if the run produced a hosted link
func (r *Result) Uploaded() bool {
	return r.Link != ""
}

// run holds the mutable state of one execution
type run struct {
	id        string
	req       *media.PipelineRequest
	tracker   *Tracker
	log       *logrus.Entry
	started   time.Time
	reference media.Asset
	query     media.Asset
	urls      []string
	final     string
	strategy  media.ConcatStrategy
	link      string
}

// assets returns the assets of the run, reference first
func (r *run) assets() []media.Asset {
	if r.req.HasQuery() {
		return []media.Asset{r.reference, r.query}
	}
	return []media.Asset{r.reference}
}

// Run executes one pipeline run end to end
func (s *Service) Run(ctx context.Context, req *media.PipelineRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		id:      s.newRunID(),
		req:     req,
		started: s.now(),
	}
	r.log = s.log.WithField("run", r.id)
	r.tracker = NewTracker(r.log)
	r.reference = media.NewAsset(filepath.Join(s.settings.WorkDir, ReferenceFileName))
	r.query = media.NewAsset(filepath.Join(s.settings.WorkDir, QueryFileName))
	r.final = filepath.Join(s.settings.WorkDir, FinalFileName)
	r.strategy = req.Strategy

	fmt.Fprintln(s.output, "TIME FOR")

	if err := s.execute(ctx, r); err != nil {
		r.tracker.Fail(err)
		// a run that never got past the tool check leaves no trace on disk
		if !IsSetupError(err) {
			s.record(ctx, r, err)
		}
		return nil, err
	}

	s.record(ctx, r, nil)

	elapsed := s.now().Sub(r.started)
	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatDuration(elapsed))

	return &Result{
		RunID:      r.id,
		OutputPath: r.final,
		Link:       r.link,
		Strategy:   r.strategy,
		States:     r.tracker.History(),
		Elapsed:    elapsed,
	}, nil
}

func (s *Service) execute(ctx context.Context, r *run) error {
	// Step 0: the tool must exist before any network or file activity
	if !s.transcoder.IsAvailable(ctx) {
		return media.ErrToolNotFound
	}
	if err := s.fs.EnsureDir(s.settings.WorkDir); err != nil {
		return err
	}

	steps := []struct {
		state State
		label string
		fn    func(context.Context, *run) error
	}{
		{StateSearching, "Searching for clips", s.search},
		{StateDownloading, "Downloading clips", s.download},
		{StateScaling, "Scaling clips", s.scale},
		{StateCaptioning, "Adding captions", s.caption},
		{StateStitching, "Stitching", s.stitch},
		{StateUploading, "Uploading", s.upload},
		{StatePresenting, "Presenting", s.present},
	}

	for i, step := range steps {
		if step.state == StateUploading && r.req.NoUpload {
			fmt.Fprintf(s.output, "[%d/%d] %s... skipped (--no-upload)\n", i+1, len(steps), step.label)
			continue
		}
		if err := r.tracker.Transition(step.state); err != nil {
			return err
		}
		fmt.Fprintf(s.output, "[%d/%d] %s...\n", i+1, len(steps), step.label)
		if err := step.fn(ctx, r); err != nil {
			return err
		}
	}

	return r.tracker.Transition(StateDone)
}

// search resolves the reference clip and, when present, the query clip concurrently
func (s *Service) search(ctx context.Context, r *run) error {
	urls := make([]string, len(r.assets()))

	var g errgroup.Group
	g.Go(func() error {
		res, err := s.searcher.Search(ctx, s.settings.ReferenceQuery, s.settings.ReferenceCandidates)
		if err != nil {
			return fmt.Errorf("could not get a reference clip: %w", err)
		}
		urls[0] = res.URL
		return nil
	})
	if r.req.HasQuery() {
		g.Go(func() error {
			res, err := s.searcher.Search(ctx, r.req.Query, r.req.ConsideredGifs)
			if err != nil {
				return fmt.Errorf("could not get a clip for %q: %w", r.req.Query, err)
			}
			urls[1] = res.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.log.WithField("urls", urls).Debug("resolved clips")
	r.urls = urls
	return nil
}

func (s *Service) download(ctx context.Context, r *run) error {
	var g errgroup.Group
	for i, a := range r.assets() {
		url, dest := r.urls[i], a.Base()
		g.Go(func() error {
			return s.downloader.Download(ctx, url, dest)
		})
	}
	return g.Wait()
}

func (s *Service) scale(ctx context.Context, r *run) error {
	var spawns []spawnFunc
	for _, a := range r.assets() {
		spawns = append(spawns, func(ctx context.Context) (media.Process, error) {
			return s.transcoder.Scale(ctx, a.Base(), s.settings.ScaleSize, a.Scaled())
		})
	}
	return runStage(ctx, spawns)
}

func (s *Service) caption(ctx context.Context, r *run) error {
	texts := []string{media.TimestampCaption(s.now(), r.req.Delay)}
	if r.req.HasQuery() {
		texts = append(texts, media.QueryCaption(r.req.Query, r.req.CustomText))
	}

	var spawns []spawnFunc
	for i, a := range r.assets() {
		text := texts[i]
		spawns = append(spawns, func(ctx context.Context) (media.Process, error) {
			return s.transcoder.Caption(ctx, a.Scaled(), text, a.WithCaption())
		})
	}
	return runStage(ctx, spawns)
}

// stitch produces the final clip: reference first, query second
func (s *Service) stitch(ctx context.Context, r *run) error {
	if !r.req.HasQuery() {
		if err := s.fs.Rename(r.reference.WithCaption(), r.final); err != nil {
			return fmt.Errorf("could not move %s into place: %w", r.reference.WithCaption(), err)
		}
	} else {
		r.strategy = s.resolveStrategy(ctx, r)
		err := runStage(ctx, []spawnFunc{func(ctx context.Context) (media.Process, error) {
			return s.transcoder.Concat(ctx, r.strategy, r.reference.WithCaption(), r.query.WithCaption(), r.final)
		}})
		if err != nil {
			return err
		}
	}

	if r.req.Format == media.FormatGIF {
		p, err := s.transcoder.ConvertToStill(ctx, r.final)
		if err != nil {
			return err
		}
		if err := p.Wait(); err != nil {
			return err
		}
		r.final = p.Job().Output
	}

	fmt.Fprintf(s.output, "      Created: %s\n", r.final)
	return nil
}

// resolveStrategy turns auto into strict or flexible by comparing the captioned clips
func (s *Service) resolveStrategy(ctx context.Context, r *run) media.ConcatStrategy {
	if r.req.Strategy != media.ConcatAuto {
		return r.req.Strategy
	}
	if s.probe == nil {
		return media.ConcatStrict
	}

	first, err := s.probe.Probe(ctx, r.reference.WithCaption())
	if err != nil {
		r.log.WithError(err).Debug("geometry probe failed, keeping strict concat")
		return media.ConcatStrict
	}
	second, err := s.probe.Probe(ctx, r.query.WithCaption())
	if err != nil {
		r.log.WithError(err).Debug("geometry probe failed, keeping strict concat")
		return media.ConcatStrict
	}

	if first != second {
		r.log.WithFields(logrus.Fields{"first": first, "second": second}).Info("clip geometries differ, using flexible concat")
		return media.ConcatFlexible
	}
	return media.ConcatStrict
}

// upload never fails the run: on error the local path is presented instead
func (s *Service) upload(ctx context.Context, r *run) error {
	kind := hosting.KindVideo
	if r.req.Format == media.FormatGIF {
		kind = hosting.KindStill
	}

	link, err := s.uploader.Upload(ctx, r.final, kind)
	if err != nil {
		r.log.WithError(err).Warn("upload failed")
		fmt.Fprintln(s.output, "There was an error uploading, so here is the file path instead:")
		return nil
	}

	r.link = link.URL
	return nil
}

// present hands over the result; presenter problems are warnings only
func (s *Service) present(ctx context.Context, r *run) error {
	err := s.presenter.Present(ctx, presentation.Presentation{
		Link:      r.link,
		LocalPath: r.final,
		Explorer:  r.req.Explorer,
		Open:      r.req.Open,
	})
	if err != nil {
		r.log.WithError(err).Warn("presenting the result was incomplete")
	}
	return nil
}

func (s *Service) record(ctx context.Context, r *run, runErr error) {
	if s.recorder == nil {
		return
	}

	e := history.Entry{
		RunID:      r.id,
		Query:      r.req.Query,
		Text:       r.req.CustomText,
		Strategy:   string(r.strategy),
		Format:     string(r.req.Format),
		OutputPath: r.final,
		Link:       r.link,
		Status:     history.StatusSucceeded,
		StartedAt:  r.started,
		Duration:   s.now().Sub(r.started),
	}
	if runErr != nil {
		e.Status = history.StatusFailed
		e.Error = runErr.Error()
		e.OutputPath = ""
	}

	if err := s.recorder.Record(ctx, e); err != nil {
		r.log.WithError(err).Warn("could not record run history")
	}
}

// IsSetupError reports whether err is something the user fixes by installing or configuring
func IsSetupError(err error) bool {
	return errors.Is(err, media.ErrToolNotFound)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	sec := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
