//go:build !opencv

package geometry

import (
	"context"

	"time-for/domain/media"
)

// Probe is a stub when GoCV/OpenCV is not available
type Probe struct{}

// NewProbe creates a stub probe (requires building with -tags=opencv)
func NewProbe() *Probe {
	return &Probe{}
}

// Probe always reports that no probe is compiled in
func (p *Probe) Probe(ctx context.Context, path string) (media.Size, error) {
	return media.Size{}, media.ErrProbeUnavailable
}

// Ensure Probe implements media.GeometryProbe
var _ media.GeometryProbe = (*Probe)(nil)
