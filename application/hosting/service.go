package hosting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"time-for/domain/hosting"
)

// Service uploads finished clips through the configured provider
type Service struct {
	uploader hosting.Uploader
	provider string
	output   io.Writer
}

// NewService creates a new upload service
func NewService(uploader hosting.Uploader, provider string, output io.Writer) *Service {
	if output == nil {
		output = io.Discard
	}
	return &Service{
		uploader: uploader,
		provider: provider,
		output:   output,
	}
}

// Upload checks the file and posts it. Every failure comes back as a hosting.UploadFailure.
func (s *Service) Upload(ctx context.Context, path string, kind hosting.Kind) (hosting.Link, error) {
	info, err := os.Stat(path)
	if err != nil {
		return hosting.Link{}, s.fail(fmt.Errorf("file does not exist: %s: %w", path, err))
	}
	if info.IsDir() {
		return hosting.Link{}, s.fail(fmt.Errorf("%s is a directory", path))
	}

	fmt.Fprintf(s.output, "      Uploading %s (%.1f MB) to %s\n", filepath.Base(path), float64(info.Size())/1024/1024, s.provider)

	link, err := s.uploader.Upload(ctx, path, kind)
	if err != nil {
		return hosting.Link{}, s.fail(err)
	}
	if link.URL == "" {
		return hosting.Link{}, s.fail(hosting.ErrNoLink)
	}
	return link, nil
}

// UploadFile infers the kind from the file extension
func (s *Service) UploadFile(ctx context.Context, path string) (hosting.Link, error) {
	return s.Upload(ctx, path, hosting.KindForPath(path))
}

func (s *Service) fail(err error) error {
	var uf *hosting.UploadFailure
	if errors.As(err, &uf) {
		return err
	}
	return &hosting.UploadFailure{Provider: s.provider, Err: err}
}

// unavailable stands in for a provider whose client could not be created
type unavailable struct {
	err error
}

// Unavailable returns an uploader whose every upload fails with err.
// The run then falls back to the local path like any other upload failure.
func Unavailable(err error) hosting.Uploader {
	var uf *hosting.UploadFailure
	if !errors.As(err, &uf) {
		err = &hosting.UploadFailure{Provider: "unknown", Err: err}
	}
	return unavailable{err: err}
}

func (u unavailable) Upload(ctx context.Context, path string, kind hosting.Kind) (hosting.Link, error) {
	return hosting.Link{}, u.err
}

// Ensure Service implements hosting.Uploader
var _ hosting.Uploader = (*Service)(nil)
var _ hosting.Uploader = unavailable{}
