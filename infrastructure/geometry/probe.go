//go:build opencv

package geometry

import (
	"context"
	"fmt"

	"time-for/domain/media"

	"gocv.io/x/gocv"
)

// Probe implements media.GeometryProbe by opening the clip with GoCV
type Probe struct{}

// NewProbe creates a GoCV-backed geometry probe
func NewProbe() *Probe {
	return &Probe{}
}

// Probe reads the frame size reported by the container
func (p *Probe) Probe(ctx context.Context, path string) (media.Size, error) {
	if err := ctx.Err(); err != nil {
		return media.Size{}, err
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return media.Size{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer vc.Close()

	size := media.Size{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}
	if size.IsZero() {
		return media.Size{}, fmt.Errorf("no frame geometry reported for %s", path)
	}
	return size, nil
}

// Ensure Probe implements media.GeometryProbe
var _ media.GeometryProbe = (*Probe)(nil)
