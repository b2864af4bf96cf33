package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factory/beltsense/internal/types"
)

// MockSource generates synthetic frames for testing and broker-less runs.
// With FrameLimit > 0 it closes the frame channel after that many frames,
// which is how it simulates end-of-stream.
type MockSource struct {
	width      int
	height     int
	fps        int
	frameLimit uint64

	framesCh chan types.Frame
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	seq           uint64
	framesEmitted uint64
	isRunning     bool
	startTime     time.Time
}

// NewMockSource creates a new mock frame source. frameLimit of 0 means
// unlimited.
func NewMockSource(width, height, fps int, frameLimit uint64) *MockSource {
	return &MockSource{
		width:      width,
		height:     height,
		fps:        fps,
		frameLimit: frameLimit,
		framesCh:   make(chan types.Frame, 10),
		stopCh:     make(chan struct{}),
	}
}

// Start begins generating frames
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("source already running")
	}
	m.isRunning = true
	m.startTime = time.Now()
	m.mu.Unlock()

	slog.Info("mock source starting",
		"width", m.width,
		"height", m.height,
		"fps", m.fps,
		"frame_limit", m.frameLimit,
	)

	m.wg.Add(1)
	go m.generateFrames(ctx)

	return nil
}

// Frames returns the frames channel
func (m *MockSource) Frames() <-chan types.Frame {
	return m.framesCh
}

// Stop stops the source
func (m *MockSource) Stop() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	m.mu.Unlock()

	slog.Info("mock source stopping")

	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()

	m.mu.RLock()
	emitted := m.framesEmitted
	started := m.startTime
	m.mu.RUnlock()

	slog.Info("mock source stopped",
		"frames_emitted", emitted,
		"duration", time.Since(started),
	)

	return nil
}

// Stats returns source statistics
func (m *MockSource) Stats() types.StreamStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var fpsReal float64
	if m.framesEmitted > 0 {
		elapsed := time.Since(m.startTime).Seconds()
		if elapsed > 0 {
			fpsReal = float64(m.framesEmitted) / elapsed
		}
	}

	return types.StreamStats{
		FrameCount:  m.framesEmitted,
		FPSTarget:   m.fps,
		FPSReal:     fpsReal,
		Resolution:  fmt.Sprintf("%dx%d", m.width, m.height),
		IsConnected: m.isRunning,
	}
}

// generateFrames generates frames at the target FPS
func (m *MockSource) generateFrames(ctx context.Context) {
	defer m.wg.Done()
	defer close(m.framesCh)

	frameDuration := time.Second / time.Duration(m.fps)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mu.RLock()
			emitted := m.framesEmitted
			m.mu.RUnlock()
			if m.frameLimit > 0 && emitted >= m.frameLimit {
				slog.Info("mock source reached frame limit", "frames", emitted)
				return
			}

			frame := m.createFrame()
			select {
			case m.framesCh <- frame:
				m.mu.Lock()
				m.framesEmitted++
				m.mu.Unlock()
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			}
		}
	}
}

// createFrame creates a synthetic BGR24 frame
func (m *MockSource) createFrame() types.Frame {
	m.mu.Lock()
	seq := m.seq
	m.seq++
	m.mu.Unlock()

	data := make([]byte, m.width*m.height*3)

	return types.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     m.width,
		Height:    m.height,
		Data:      data,
		TraceID:   uuid.New().String(),
	}
}
