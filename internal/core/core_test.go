package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factory/beltsense/internal/config"
	"github.com/factory/beltsense/internal/frameslot"
	"github.com/factory/beltsense/internal/inspect"
	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/stream"
	"github.com/factory/beltsense/internal/types"
)

// scriptedExtractor returns measurements keyed off the frame sequence
// number, standing in for the image pipeline.
type scriptedExtractor struct {
	script func(seq uint64) types.Measurement
}

func (e *scriptedExtractor) Extract(frame types.Frame) (types.Measurement, error) {
	if frame.Empty() {
		return types.Measurement{}, errors.New("empty frame")
	}
	return e.script(frame.Seq), nil
}

// fakeChannel is an in-memory telemetry channel.
type fakeChannel struct {
	mu        sync.Mutex
	published map[string][]string
	connected bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{published: make(map[string][]string)}
}

func (f *fakeChannel) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) Publish(topic string, payload []byte, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return errors.New("not connected")
	}
	f.published[topic] = append(f.published[topic], string(payload))
	return nil
}

func (f *fakeChannel) SubscribeControl(handler func(topic string, payload []byte)) error {
	return nil
}

func (f *fakeChannel) Disconnect() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published[topic])
}

func testConfig() *config.Config {
	cfg := &config.Config{
		InstanceID: "line-test",
		Video:      config.VideoConfig{Source: "mock", Width: 64, Height: 48},
		Detection:  config.DetectionConfig{MinArea: 20000, MaxArea: 30000},
		Telemetry:  config.TelemetryConfig{IntervalS: 1},
		MQTT: config.MQTTConfig{
			Broker: "localhost:1883",
			Topics: config.MQTTTopics{Defects: "defects/counter", Control: "defects/control"},
			QoS:    map[string]byte{"defects": 0, "control": 1},
		},
	}
	return cfg
}

func newTestService(cfg *config.Config, src StreamProvider, ext ObjectExtractor, ch TelemetryChannel) *Service {
	return &Service{
		cfg:        cfg,
		stream:     src,
		extractor:  ext,
		channel:    ch,
		slot:       frameslot.New(),
		assembly:   state.New(),
		classifier: inspect.NewClassifier(cfg.Detection.MinArea, cfg.Detection.MaxArea),
	}
}

// TestPipelineEndToEnd runs the full pipeline against a scripted belt:
// a good part, a belt gap, then an oversized part. The service must count
// two parts and confirm one defect, then shut down cleanly when the
// source is exhausted.
func TestPipelineEndToEnd(t *testing.T) {
	cfg := testConfig()

	// 200 fps mock, 120 frames total: seq 0-49 good part, 50-54 gap,
	// 55-119 oversized. Frame drops only shrink the runs; every run is
	// far longer than the hysteresis window.
	src := stream.NewMockSource(cfg.Video.Width, cfg.Video.Height, 200, 120)
	ext := &scriptedExtractor{script: func(seq uint64) types.Measurement {
		switch {
		case seq < 50:
			return types.Measurement{Area: 25000, Region: types.Rect{Width: 100, Height: 250}, Present: true}
		case seq < 55:
			return types.Measurement{}
		default:
			return types.Measurement{Area: 35000, Region: types.Rect{Width: 100, Height: 350}, Present: true}
		}
	}}
	ch := newFakeChannel()

	s := newTestService(cfg, src, ext, ch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- s.Run(ctx)
	}()

	// Run returns on its own once the mock source closes the channel.
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(8 * time.Second):
		t.Fatal("service did not stop on source exhaustion")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.TotalParts, "good part and oversized part")
	assert.Equal(t, uint64(1), snap.TotalDefects, "only the oversized part is defective")
	assert.True(t, snap.LastShowDefect, "defective part was still on belt at end of stream")

	// The publisher fired at least the immediate first cycle.
	assert.GreaterOrEqual(t, ch.count("defects/counter"), 1)
	assert.False(t, ch.IsConnected(), "channel must be closed after shutdown")
}

// TestShutdownOnSignal cancels the run context mid-stream and verifies
// every loop exits within the shutdown window.
func TestShutdownOnSignal(t *testing.T) {
	cfg := testConfig()
	src := stream.NewMockSource(cfg.Video.Width, cfg.Video.Height, 100, 0)
	ext := &scriptedExtractor{script: func(seq uint64) types.Measurement {
		return types.Measurement{Area: 25000, Present: true}
	}}
	ch := newFakeChannel()

	s := newTestService(cfg, src, ext, ch)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- s.Run(ctx)
	}()

	// Let a few frames flow, then signal shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not observe cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.TotalParts)
	assert.Equal(t, uint64(0), snap.TotalDefects)
}

// TestDisplayReceivesSnapshots verifies the display path is driven from
// the capture loop with read-only snapshots.
func TestDisplayReceivesSnapshots(t *testing.T) {
	cfg := testConfig()
	src := stream.NewMockSource(cfg.Video.Width, cfg.Video.Height, 200, 30)
	ext := &scriptedExtractor{script: func(seq uint64) types.Measurement {
		return types.Measurement{Area: 25000, Present: true}
	}}
	ch := newFakeChannel()

	s := newTestService(cfg, src, ext, ch)

	var mu sync.Mutex
	renders := 0
	s.SetDisplay(func(frame types.Frame, snap state.Snapshot) {
		mu.Lock()
		renders++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- s.Run(ctx)
	}()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(8 * time.Second):
		t.Fatal("service did not stop")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, renders, 0, "display callback never invoked")
}
