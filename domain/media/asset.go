package media

import (
	"path/filepath"
	"strings"
)

// DefaultExtension is used for derived paths when the base path has no extension
const DefaultExtension = "webm"

const (
	captionSuffix = "_text"
	scaleSuffix   = "_scaled"
)

// Asset identifies a logical clip by its base file path.
// Every transform step derives its input and output paths from the base,
// so the same Asset is referenced through the whole run.
type Asset struct {
	base string
}

// NewAsset creates an asset rooted at the given base path
func NewAsset(base string) Asset {
	return Asset{base: base}
}

// Base returns the path the clip is downloaded to
func (a Asset) Base() string {
	return a.base
}

// WithCaption returns the path of the captioned variant
func (a Asset) WithCaption() string {
	return a.withSuffix(captionSuffix)
}

// Scaled returns the path of the scaled variant
func (a Asset) Scaled() string {
	return a.withSuffix(scaleSuffix)
}

func (a Asset) withSuffix(suffix string) string {
	dir := filepath.Dir(a.base)
	name := filepath.Base(a.base)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}

	return filepath.Join(dir, stem+suffix+"."+ext)
}

// WithExtension returns path with its extension replaced by ext (no leading dot)
func WithExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}
