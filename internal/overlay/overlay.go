// Package overlay formats assembly snapshots for the display path.
// Rendering itself is a collaborator concern; this package only produces
// the text and box that a renderer draws, so it stays testable without a
// window system.
package overlay

import (
	"fmt"

	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/types"
)

// Labels are the two overlay text lines for one snapshot.
type Labels struct {
	Measurement string
	Totals      string
}

// Box is the part bounding box with its highlight choice.
type Box struct {
	Region types.Rect
	// Alert is true when the box should use the defect highlight color.
	Alert bool
}

// Format produces the overlay content for a snapshot against the
// configured acceptable range.
func Format(snap state.Snapshot, minArea, maxArea int) (Labels, Box) {
	defect := "FALSE"
	if snap.LastDefect {
		defect = "TRUE"
	}

	labels := Labels{
		Measurement: fmt.Sprintf("Measurement: %d Expected range: [%d - %d] Defect: %s",
			snap.LastArea, minArea, maxArea, defect),
		Totals: fmt.Sprintf("Total parts: %d Total Defects: %d",
			snap.TotalParts, snap.TotalDefects),
	}

	return labels, Box{Region: snap.LastRegion, Alert: snap.LastShowDefect}
}
