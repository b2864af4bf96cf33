//go:build !gocv
// +build !gocv

package main

import (
	"fmt"

	"github.com/factory/beltsense/internal/core"
	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/types"
)

// display is unavailable without OpenCV.
type display struct{}

func newDisplay(service *core.Service) (*display, error) {
	return nil, fmt.Errorf("display requires build tag gocv")
}

func (d *display) Render(frame types.Frame, snap state.Snapshot) {}

func (d *display) Close() error { return nil }
