package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"time-for/domain/history"
	"time-for/domain/hosting"
	"time-for/domain/media"
	"time-for/domain/presentation"
	"time-for/domain/search"
)

// events is a goroutine-safe ordered log shared by the mocks
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

// mockSearcher implements search.Searcher for testing
type mockSearcher struct {
	mu      sync.Mutex
	calls   map[string]int
	errs    map[string]error
	results map[string]string
	events  *events
}

func (m *mockSearcher) Search(ctx context.Context, query string, candidateCount int) (search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[query] = candidateCount
	if m.events != nil {
		m.events.add("search:%s", query)
	}
	if err := m.errs[query]; err != nil {
		return search.Result{}, err
	}
	url := m.results[query]
	if url == "" {
		url = "https://media.tenor.com/" + query + ".webm"
	}
	return search.Result{URL: url, Query: query}, nil
}

func (m *mockSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockDownloader implements Downloader for testing
type mockDownloader struct {
	mu         sync.Mutex
	downloads  map[string]string // dest -> url
	err        error
	writeFiles bool
	events     *events
}

func (m *mockDownloader) Download(ctx context.Context, url, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloads == nil {
		m.downloads = map[string]string{}
	}
	m.downloads[dest] = url
	if m.events != nil {
		m.events.add("download:%s", filepath.Base(dest))
	}
	if m.err != nil {
		return m.err
	}
	if m.writeFiles {
		return os.WriteFile(dest, []byte(url), 0644)
	}
	return nil
}

// mockProcess implements media.Process for testing
type mockProcess struct {
	job        media.TranscodeJob
	err        error
	writeFiles bool
	events     *events
}

func (p *mockProcess) Job() media.TranscodeJob {
	return p.job
}

func (p *mockProcess) Wait() error {
	if p.err == nil && p.writeFiles {
		if err := os.WriteFile(p.job.Output, []byte(p.job.Kind), 0644); err != nil {
			return err
		}
	}
	p.events.add("done:%s:%s", p.job.Kind, filepath.Base(p.job.Output))
	return p.err
}

// mockTranscoder implements media.Transcoder for testing
type mockTranscoder struct {
	mu          sync.Mutex
	unavailable bool
	jobs        []media.TranscodeJob
	spawnErr    map[media.JobKind]error
	waitErr     map[media.JobKind]error
	writeFiles  bool
	events      *events
}

func (m *mockTranscoder) IsAvailable(ctx context.Context) bool {
	return !m.unavailable
}

func (m *mockTranscoder) start(job media.TranscodeJob) (media.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events.add("spawn:%s:%s", job.Kind, filepath.Base(job.Output))
	if err := m.spawnErr[job.Kind]; err != nil {
		return nil, err
	}
	m.jobs = append(m.jobs, job)
	return &mockProcess{job: job, err: m.waitErr[job.Kind], writeFiles: m.writeFiles, events: m.events}, nil
}

func (m *mockTranscoder) Caption(ctx context.Context, input, text, output string) (media.Process, error) {
	return m.start(media.TranscodeJob{Kind: media.JobCaption, Inputs: []string{input}, Output: output, Text: text})
}

func (m *mockTranscoder) Scale(ctx context.Context, input string, size media.Size, output string) (media.Process, error) {
	return m.start(media.TranscodeJob{Kind: media.JobScale, Inputs: []string{input}, Output: output, Size: size})
}

func (m *mockTranscoder) ConvertToStill(ctx context.Context, input string) (media.Process, error) {
	return m.start(media.TranscodeJob{Kind: media.JobConvert, Inputs: []string{input}, Output: media.WithExtension(input, "gif")})
}

func (m *mockTranscoder) Concat(ctx context.Context, strategy media.ConcatStrategy, first, second, output string) (media.Process, error) {
	kind := media.JobConcatStrict
	switch strategy {
	case media.ConcatFlexible:
		kind = media.JobConcatFlexible
	case media.ConcatAuto:
		return nil, errors.New("auto must be resolved before concat")
	}
	return m.start(media.TranscodeJob{Kind: kind, Inputs: []string{first, second}, Output: output})
}

func (m *mockTranscoder) jobsOf(kind media.JobKind) []media.TranscodeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []media.TranscodeJob
	for _, j := range m.jobs {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

// mockProbe implements media.GeometryProbe for testing
type mockProbe struct {
	sizes map[string]media.Size
	err   error
}

func (m *mockProbe) Probe(ctx context.Context, path string) (media.Size, error) {
	if m.err != nil {
		return media.Size{}, m.err
	}
	return m.sizes[filepath.Base(path)], nil
}

// mockUploader implements hosting.Uploader for testing
type mockUploader struct {
	link    string
	err     error
	calls   int
	gotPath string
	gotKind hosting.Kind
}

func (m *mockUploader) Upload(ctx context.Context, path string, kind hosting.Kind) (hosting.Link, error) {
	m.calls++
	m.gotPath = path
	m.gotKind = kind
	if m.err != nil {
		return hosting.Link{}, m.err
	}
	return hosting.NewLink(m.link, kind), nil
}

// mockPresenter implements presentation.Presenter for testing
type mockPresenter struct {
	got   []presentation.Presentation
	err   error
	calls int
}

func (m *mockPresenter) Present(ctx context.Context, p presentation.Presentation) error {
	m.calls++
	m.got = append(m.got, p)
	return m.err
}

// mockRecorder implements history.Recorder for testing
type mockRecorder struct {
	entries []history.Entry
	err     error
}

func (m *mockRecorder) Record(ctx context.Context, e history.Entry) error {
	m.entries = append(m.entries, e)
	return m.err
}

// mockFS implements FileSystem for testing
type mockFS struct {
	ensured   []string
	renames   [][2]string
	ensureErr error
	real      bool
}

func (m *mockFS) EnsureDir(dir string) error {
	m.ensured = append(m.ensured, dir)
	if m.ensureErr != nil {
		return m.ensureErr
	}
	if m.real {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func (m *mockFS) Rename(src, dst string) error {
	m.renames = append(m.renames, [2]string{src, dst})
	if m.real {
		return os.Rename(src, dst)
	}
	return nil
}
