// Package state holds the shared assembly-line record: the latest part
// status plus running totals, written by the processing loop and read by
// the telemetry publisher and the display path.
package state

import (
	"sync"

	"github.com/factory/beltsense/internal/inspect"
	"github.com/factory/beltsense/internal/types"
)

// Snapshot is a consistent copy of the assembly record. Counters are
// uint64 and wrap around on overflow; at one part per second that is
// several hundred billion years of uptime, so no saturation logic.
type Snapshot struct {
	LastArea       int
	LastDefect     bool
	LastShowDefect bool
	LastRegion     types.Rect
	TotalParts     uint64
	TotalDefects   uint64
}

// Assembly is the mutex-guarded shared record. All access goes through
// ApplyVerdict and Snapshot; readers never observe a partial update.
type Assembly struct {
	mu   sync.Mutex
	snap Snapshot
}

// New creates an all-zero assembly record.
func New() *Assembly {
	return &Assembly{}
}

// ApplyVerdict commits one processed frame: latest measurement fields,
// the verdict flags, and the counters the verdict asks for.
func (a *Assembly) ApplyVerdict(m types.Measurement, v inspect.Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap.LastArea = m.Area
	a.snap.LastRegion = m.Region
	a.snap.LastDefect = v.DefectEvent
	a.snap.LastShowDefect = v.ShowDefect
	if v.NewPart {
		a.snap.TotalParts++
	}
	if v.DefectEvent {
		a.snap.TotalDefects++
	}
}

// Snapshot returns a consistent copy of the record.
func (a *Assembly) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}
