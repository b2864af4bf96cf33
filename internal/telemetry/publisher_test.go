package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/factory/beltsense/internal/inspect"
	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/telemetry"
	"github.com/factory/beltsense/internal/types"
)

type fakeChannel struct {
	mu       sync.Mutex
	payloads []string
	topics   []string
	fail     bool
}

func (f *fakeChannel) Publish(topic string, payload []byte, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, string(payload))
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeChannel) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return ""
	}
	return f.payloads[len(f.payloads)-1]
}

func (f *fakeChannel) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func TestPublishesStatusAtCadence(t *testing.T) {
	assembly := state.New()
	ch := &fakeChannel{}
	pub := telemetry.New(ch, assembly, "defects/counter", 0, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ch.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if ch.count() < 3 {
		t.Fatalf("expected at least 3 publishes, got %d", ch.count())
	}
	if ch.topics[0] != "defects/counter" {
		t.Fatalf("wrong topic: %s", ch.topics[0])
	}
	if ch.payloads[0] != `{"Defect":"false"}` {
		t.Fatalf("unexpected payload: %s", ch.payloads[0])
	}
}

func TestPayloadReflectsLatestSnapshot(t *testing.T) {
	assembly := state.New()
	m := types.Measurement{Area: 35000, Present: true}
	assembly.ApplyVerdict(m, inspect.Verdict{NewPart: true})
	assembly.ApplyVerdict(m, inspect.Verdict{DefectEvent: true, ShowDefect: true})

	ch := &fakeChannel{}
	pub := telemetry.New(ch, assembly, "defects/counter", 0, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ch.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done

	if ch.count() == 0 {
		t.Fatal("nothing published")
	}
	if ch.payloads[0] != `{"Defect":"true"}` {
		t.Fatalf("unexpected payload: %s", ch.payloads[0])
	}
}

// TestSendFailureDoesNotStopLoop flips the channel into failure mode and
// back; the loop must keep cycling and resume publishing.
func TestSendFailureDoesNotStopLoop(t *testing.T) {
	assembly := state.New()
	ch := &fakeChannel{}
	ch.setFail(true)

	pub := telemetry.New(ch, assembly, "defects/counter", 0, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	ch.setFail(false)

	deadline := time.Now().Add(2 * time.Second)
	for ch.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if ch.count() == 0 {
		t.Fatal("publisher did not recover after send failures")
	}
}
