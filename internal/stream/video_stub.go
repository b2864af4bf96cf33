//go:build !gocv
// +build !gocv

package stream

import "fmt"

// VideoSource requires OpenCV. This stub compiles without the gocv tag
// so tests and broker-less development builds work with MockSource.
type VideoSource = MockSource

// NewVideoSource returns an error: device capture requires build tag gocv.
func NewVideoSource(source string, width, height int) (*VideoSource, error) {
	return nil, fmt.Errorf("video capture for %q requires build tag gocv", source)
}
