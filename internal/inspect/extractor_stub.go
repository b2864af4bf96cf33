//go:build !gocv
// +build !gocv

package inspect

import (
	"errors"

	"github.com/factory/beltsense/internal/types"
)

// Extractor finds the largest qualifying object in a frame. This stub
// is compiled without the gocv tag; builds without OpenCV must run with
// the mock stream and a scripted extractor.
type Extractor struct {
	MinObjectWidth int
	ThresholdValue float32
}

// NewExtractor creates an extractor stub (no OpenCV in this build).
func NewExtractor() *Extractor {
	return &Extractor{
		MinObjectWidth: 30,
		ThresholdValue: 200,
	}
}

// Extract returns an error: image processing requires the gocv build tag.
func (e *Extractor) Extract(frame types.Frame) (types.Measurement, error) {
	return types.Measurement{}, errors.New("object extraction requires build tag gocv")
}
