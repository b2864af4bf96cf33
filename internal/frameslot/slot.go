// Package frameslot implements the single-slot hand-off buffer between
// the capture loop and the processing worker.
//
// Philosophy: "Drop frames, never queue. Freshness > Completeness."
//
// The slot holds at most one frame. A put against an occupied slot is
// rejected outright: the new frame is discarded and the stored frame is
// left untouched. The worker therefore always processes frames in capture
// order, possibly with gaps, and memory stays bounded no matter how far
// the worker falls behind.
package frameslot

import (
	"sync"
	"time"

	"github.com/factory/beltsense/internal/types"
)

// Slot is a mutex-guarded single-frame mailbox with reject-on-busy
// semantics.
//
// Thread-safety:
//   - All fields protected by mu
//   - TryPut: called by the capture loop
//   - Take/TakeIfPresent: called by the worker goroutine (single consumer)
type Slot struct {
	mu    sync.Mutex
	cond  *sync.Cond // signals the worker goroutine
	frame *types.Frame

	// operational stats
	accepted           uint64
	rejected           uint64
	consecutiveRejects uint64
	lastConsumedAt     time.Time
	lastConsumedSeq    uint64

	closed bool // true after Close (signals Take to return false)
}

// New creates an empty slot.
func New() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	s.lastConsumedAt = time.Now()
	return s
}

// TryPut stores frame if the slot is empty and returns true. If the slot
// is occupied the frame is silently discarded, the stored frame is left
// unchanged, and TryPut returns false. Non-blocking, O(1).
func (s *Slot) TryPut(frame types.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.frame != nil {
		s.rejected++
		s.consecutiveRejects++
		return false
	}

	s.frame = &frame
	s.accepted++
	s.cond.Signal()
	return true
}

// TakeIfPresent removes and returns the stored frame if one is present.
// Non-blocking, O(1).
func (s *Slot) TakeIfPresent() (types.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return types.Frame{}, false
	}
	return s.consume(), true
}

// Take blocks until a frame is available or the slot is closed. Returns
// false only on close, which is how the worker detects shutdown without
// spinning on an idle belt.
func (s *Slot) Take() (types.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.frame == nil && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return types.Frame{}, false
	}
	return s.consume(), true
}

// consume removes the stored frame. Caller must hold mu.
func (s *Slot) consume() types.Frame {
	frame := *s.frame
	s.frame = nil
	s.lastConsumedAt = time.Now()
	s.lastConsumedSeq = frame.Seq
	s.consecutiveRejects = 0
	return frame
}

// Close marks the slot closed and wakes a worker blocked in Take.
// Subsequent TryPut calls become no-ops. Idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	s.closed = true
	s.frame = nil
	s.cond.Signal()
	s.mu.Unlock()
}

// Stats contains slot statistics
type Stats struct {
	Accepted           uint64
	Rejected           uint64
	ConsecutiveRejects uint64
	LastConsumedSeq    uint64
	LastConsumedAt     time.Time
}

// Stats returns a consistent copy of the slot counters.
func (s *Slot) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Accepted:           s.accepted,
		Rejected:           s.rejected,
		ConsecutiveRejects: s.consecutiveRejects,
		LastConsumedSeq:    s.lastConsumedSeq,
		LastConsumedAt:     s.lastConsumedAt,
	}
}
