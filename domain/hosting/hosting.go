package hosting

import (
	"context"
	"strings"
)

// Kind distinguishes video container uploads from still-image uploads
type Kind string

const (
	KindVideo Kind = "video"
	KindStill Kind = "still"
)

// Link is the share URL returned by a hosting provider
type Link struct {
	URL string
}

// NewLink cleans a raw link returned for an upload of the given kind.
// Video uploads come back with trailing dots that must be stripped.
func NewLink(raw string, kind Kind) Link {
	raw = strings.TrimSpace(raw)
	if kind == KindVideo {
		raw = strings.TrimRight(raw, ".")
	}
	return Link{URL: raw}
}

// String returns the URL
func (l Link) String() string {
	return l.URL
}

// Uploader posts a local file to a hosting service
// This is a port that can be implemented by different infrastructure adapters
type Uploader interface {
	Upload(ctx context.Context, path string, kind Kind) (Link, error)
}

// KindForPath infers the upload kind from a file extension
func KindForPath(path string) Kind {
	lower := strings.ToLower(path)
	for _, ext := range []string{".gif", ".png", ".jpg", ".jpeg"} {
		if strings.HasSuffix(lower, ext) {
			return KindStill
		}
	}
	return KindVideo
}
