package hosting

import (
	"errors"
	"fmt"
)

// ErrNoLink is returned when a successful response carries no usable link
var ErrNoLink = errors.New("response did not contain a link")

// UploadFailure wraps any network or response-parsing failure of an upload
type UploadFailure struct {
	Provider string
	Err      error
}

func (e *UploadFailure) Error() string {
	return fmt.Sprintf("upload to %s failed: %v", e.Provider, e.Err)
}

func (e *UploadFailure) Unwrap() error {
	return e.Err
}
