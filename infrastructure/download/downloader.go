package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// IOError wraps any network or filesystem failure while fetching a clip.
// A partially written destination file is left in place.
type IOError struct {
	URL  string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("there was an error downloading %s to %s: %v", e.URL, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Downloader fetches URLs to local files
type Downloader struct {
	httpClient *http.Client
	log        *logrus.Entry
}

// DownloaderOption is a functional option for configuring Downloader
type DownloaderOption func(*Downloader)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.httpClient = hc
	}
}

// WithLogger sets the downloader logger
func WithLogger(log *logrus.Entry) DownloaderOption {
	return func(d *Downloader) {
		d.log = log
	}
}

// NewDownloader creates a new HTTP downloader
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.log = d.log.WithField("component", "download")
	return d
}

// Download streams the body at url into dest, replacing any existing file
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	fail := func(err error) error {
		return &IOError{URL: url, Path: dest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Errorf("unexpected http status %s", resp.Status))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fail(err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fail(err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}

	d.log.WithFields(logrus.Fields{"path": dest, "bytes": n}).Debug("downloaded")
	return nil
}
