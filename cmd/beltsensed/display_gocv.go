//go:build gocv
// +build gocv

package main

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/factory/beltsense/internal/core"
	"github.com/factory/beltsense/internal/overlay"
	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/types"
)

// display renders frames with the status overlay in an OpenCV window.
// It is a read-only consumer of assembly snapshots.
type display struct {
	service *core.Service
	window  *gocv.Window
}

func newDisplay(service *core.Service) (*display, error) {
	return &display{
		service: service,
		window:  gocv.NewWindow("Object Size Detector"),
	}, nil
}

// Render draws the overlay labels and part box onto the frame. Called
// from the capture loop.
func (d *display) Render(frame types.Frame, snap state.Snapshot) {
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return
	}
	defer mat.Close()

	cfg := d.service.Config()
	labels, box := overlay.Format(snap, cfg.Detection.MinArea, cfg.Detection.MaxArea)

	green := color.RGBA{G: 255, A: 255}
	gocv.PutText(&mat, labels.Measurement, image.Pt(0, 15), gocv.FontHersheySimplex, 0.5, green, 1)
	gocv.PutText(&mat, labels.Totals, image.Pt(0, 40), gocv.FontHersheySimplex, 0.5, green, 1)

	boxColor := green
	if box.Alert {
		boxColor = color.RGBA{B: 255, A: 255}
	}
	rect := image.Rect(box.Region.X, box.Region.Y,
		box.Region.X+box.Region.Width, box.Region.Y+box.Region.Height)
	gocv.Rectangle(&mat, rect, boxColor, 1)

	d.window.IMShow(mat)
	d.window.WaitKey(1)
}

// Close releases the window.
func (d *display) Close() error {
	return d.window.Close()
}
