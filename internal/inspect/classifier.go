// Package inspect turns per-frame measurements into part-level defect
// verdicts using temporal hysteresis, so a single noisy frame never
// flips a part's status.
package inspect

import "github.com/factory/beltsense/internal/types"

// hysteresisFrames is the number of consecutive frames a condition must
// persist beyond before it is acted on (strictly greater-than).
const hysteresisFrames = 10

// State holds the classifier's temporal memory for the part currently
// on the belt. It is owned exclusively by the processing loop and is
// never shared across goroutines. The zero value means "empty belt".
type State struct {
	// PartSeen is true while a part is continuously present.
	PartSeen bool
	// DefectConfirmed latches once the current part is confirmed defective.
	DefectConfirmed bool
	// OKStreak counts consecutive in-range frames.
	OKStreak int
	// DefectStreak counts consecutive out-of-range frames.
	DefectStreak int
}

// Verdict is the classifier's output for one frame.
type Verdict struct {
	// DefectEvent fires exactly once per physical part, on the frame
	// where the defect is confirmed (edge-triggered).
	DefectEvent bool
	// ShowDefect stays true from confirmation until the part leaves
	// the belt (level signal).
	ShowDefect bool
	// NewPart is true on the first frame of a newly arrived part;
	// the caller increments the part total on it.
	NewPart bool
}

// Classifier classifies parts against an inclusive acceptable area range.
type Classifier struct {
	minArea int
	maxArea int
}

// NewClassifier creates a classifier with the given acceptable range.
// A part area inside [minArea, maxArea] is ok; outside it the frame fails.
func NewClassifier(minArea, maxArea int) *Classifier {
	return &Classifier{minArea: minArea, maxArea: maxArea}
}

// Classify consumes one measurement and the current state, returning the
// verdict for this frame and the updated state. Pure function: no hidden
// state beyond the State record.
//
// A measurement with Present=false models the belt gap between parts and
// discards all temporal memory. A defect is confirmed only after the
// failing streak exceeds hysteresisFrames while the part stays
// continuously present, and a sustained ok streak clears a building
// failing streak first, so flicker in either direction is absorbed.
func (c *Classifier) Classify(m types.Measurement, st State) (Verdict, State) {
	if !m.Present {
		// Empty belt: the next part starts from scratch.
		return Verdict{}, State{}
	}

	frameFails := m.Area > c.maxArea || m.Area < c.minArea
	if frameFails {
		st.DefectStreak++
	} else {
		st.OKStreak++
	}

	var v Verdict
	if !st.PartSeen {
		// First frame of a new part. No hysteresis decision yet.
		st.PartSeen = true
		v.NewPart = true
	} else {
		if !frameFails && st.OKStreak > hysteresisFrames {
			st.DefectStreak = 0
		}
		if frameFails && st.DefectStreak > hysteresisFrames {
			if !st.DefectConfirmed {
				st.DefectConfirmed = true
				v.DefectEvent = true
			}
			st.OKStreak = 0
		}
	}

	v.ShowDefect = st.DefectConfirmed
	return v, st
}
