package presentation

import "context"

// Presentation is what the run hands over once the final clip exists
type Presentation struct {
	// Link is the hosted URL; empty when the upload was skipped or failed
	Link string

	// LocalPath is the final clip on disk
	LocalPath string

	// Explorer asks for the containing folder to be opened
	Explorer bool

	// Open asks for the clip to be opened in the default application
	Open bool
}

// Target returns the text that should reach the user: the link, or the local path as fallback
func (p Presentation) Target() string {
	if p.Link != "" {
		return p.Link
	}
	return p.LocalPath
}

// HasLink returns true if the upload produced a link
func (p Presentation) HasLink() bool {
	return p.Link != ""
}

// Presenter places the result on the clipboard and runs the requested post-actions
type Presenter interface {
	Present(ctx context.Context, p Presentation) error
}
