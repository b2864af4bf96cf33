package frameslot_test

import (
	"sync"
	"testing"
	"time"

	"github.com/factory/beltsense/internal/frameslot"
	"github.com/factory/beltsense/internal/types"
)

func frame(seq uint64) types.Frame {
	return types.Frame{Seq: seq, Timestamp: time.Now(), Width: 4, Height: 4, Data: []byte{1}}
}

// TestTryPutRejectsWhenOccupied validates the reject-on-busy policy:
// a put against an occupied slot must return false and must not touch
// the stored frame (no overwrite, no queueing).
func TestTryPutRejectsWhenOccupied(t *testing.T) {
	slot := frameslot.New()

	if !slot.TryPut(frame(1)) {
		t.Fatal("TryPut on empty slot must succeed")
	}
	if slot.TryPut(frame(2)) {
		t.Fatal("TryPut on occupied slot must be rejected")
	}
	if slot.TryPut(frame(3)) {
		t.Fatal("TryPut on occupied slot must be rejected")
	}

	got, ok := slot.TakeIfPresent()
	if !ok {
		t.Fatal("TakeIfPresent on occupied slot must return a frame")
	}
	if got.Seq != 1 {
		t.Fatalf("stored frame was replaced: got seq=%d, want seq=1", got.Seq)
	}

	stats := slot.Stats()
	if stats.Accepted != 1 || stats.Rejected != 2 {
		t.Fatalf("stats accepted=%d rejected=%d, want 1/2", stats.Accepted, stats.Rejected)
	}
}

// TestTakeIfPresentEmpty validates the non-blocking empty read.
func TestTakeIfPresentEmpty(t *testing.T) {
	slot := frameslot.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := slot.TakeIfPresent(); ok {
			t.Error("TakeIfPresent on empty slot must return false")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TakeIfPresent blocked on empty slot")
	}
}

// TestTakePreservesOrder validates frames come out in capture order
// (gaps allowed, reordering not).
func TestTakePreservesOrder(t *testing.T) {
	slot := frameslot.New()

	var got []uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			f, ok := slot.Take()
			if !ok {
				return
			}
			got = append(got, f.Seq)
		}
	}()

	for seq := uint64(1); seq <= 200; seq++ {
		slot.TryPut(frame(seq))
	}
	// Let the consumer drain the last accepted frame before closing.
	time.Sleep(20 * time.Millisecond)
	slot.Close()
	wg.Wait()

	if len(got) == 0 {
		t.Fatal("consumer received no frames")
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("frames reordered: %d after %d", got[i], got[i-1])
		}
	}
}

// TestCloseWakesBlockedTake validates shutdown responsiveness: a worker
// parked in Take must observe Close promptly and exit.
func TestCloseWakesBlockedTake(t *testing.T) {
	slot := frameslot.New()

	done := make(chan bool, 1)
	go func() {
		_, ok := slot.Take()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	slot.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("Take must return false after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not wake up after Close")
	}
}

// TestTryPutAfterClose validates puts become no-ops once closed.
func TestTryPutAfterClose(t *testing.T) {
	slot := frameslot.New()
	slot.Close()

	if slot.TryPut(frame(1)) {
		t.Fatal("TryPut after Close must be rejected")
	}
	if _, ok := slot.TakeIfPresent(); ok {
		t.Fatal("closed slot must hold no frame")
	}
}
