//go:build gocv
// +build gocv

package stream

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/factory/beltsense/internal/types"
)

// VideoSource reads frames from a video file or capture device via
// OpenCV, resizes them to the configured working resolution, and paces
// playback to the source FPS. End-of-stream closes the frame channel.
type VideoSource struct {
	source string
	width  int
	height int

	cap      *gocv.VideoCapture
	framesCh chan types.Frame
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	seq           uint64
	framesEmitted uint64
	errCount      uint64
	fps           int
	isRunning     bool
	startTime     time.Time
}

// NewVideoSource opens the capture source. A numeric source string is
// treated as a device index, anything else as a file path or URL.
// An unopenable source is startup-fatal for the caller.
func NewVideoSource(source string, width, height int) (*VideoSource, error) {
	var (
		cap *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(source); convErr == nil {
		cap, err = gocv.OpenVideoCapture(idx)
	} else {
		cap, err = gocv.OpenVideoCapture(source)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open video source %q: %w", source, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("unable to open video source %q", source)
	}

	fps := int(cap.Get(gocv.VideoCaptureFPS))
	if fps <= 0 {
		fps = 30
	}

	return &VideoSource{
		source:   source,
		width:    width,
		height:   height,
		cap:      cap,
		fps:      fps,
		framesCh: make(chan types.Frame, 10),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins reading frames
func (v *VideoSource) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.isRunning {
		v.mu.Unlock()
		return fmt.Errorf("source already running")
	}
	v.isRunning = true
	v.startTime = time.Now()
	v.mu.Unlock()

	slog.Info("video source starting",
		"source", v.source,
		"fps", v.fps,
		"resolution", fmt.Sprintf("%dx%d", v.width, v.height),
	)

	v.wg.Add(1)
	go v.readFrames(ctx)

	return nil
}

// Frames returns the frames channel
func (v *VideoSource) Frames() <-chan types.Frame {
	return v.framesCh
}

// Stop stops reading and releases the capture device. The reader
// goroutine is joined before the device is closed.
func (v *VideoSource) Stop() error {
	v.mu.Lock()
	if !v.isRunning {
		v.mu.Unlock()
		return nil
	}
	v.isRunning = false
	v.mu.Unlock()

	slog.Info("video source stopping")

	v.stopOnce.Do(func() { close(v.stopCh) })
	v.wg.Wait()

	if err := v.cap.Close(); err != nil {
		return fmt.Errorf("failed to release capture device: %w", err)
	}

	slog.Info("video source stopped", "frames_emitted", v.framesEmitted)
	return nil
}

// Stats returns source statistics
func (v *VideoSource) Stats() types.StreamStats {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var fpsReal float64
	if v.framesEmitted > 0 {
		elapsed := time.Since(v.startTime).Seconds()
		if elapsed > 0 {
			fpsReal = float64(v.framesEmitted) / elapsed
		}
	}

	return types.StreamStats{
		FrameCount:  v.framesEmitted,
		FPSTarget:   v.fps,
		FPSReal:     fpsReal,
		Resolution:  fmt.Sprintf("%dx%d", v.width, v.height),
		IsConnected: v.isRunning,
		Errors:      v.errCount,
	}
}

// readFrames reads, resizes and emits frames paced to the source FPS.
func (v *VideoSource) readFrames(ctx context.Context) {
	defer v.wg.Done()
	defer close(v.framesCh)

	mat := gocv.NewMat()
	defer mat.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	delay := time.Second / time.Duration(v.fps)
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.stopCh:
			return
		case <-ticker.C:
			if ok := v.cap.Read(&mat); !ok || mat.Empty() {
				// End of stream: a blank frame means the source is
				// exhausted. Orderly shutdown, not an error.
				slog.Info("video source exhausted", "frames_emitted", v.framesEmitted)
				return
			}

			gocv.Resize(mat, &resized, image.Pt(v.width, v.height), 0, 0, gocv.InterpolationLinear)

			data := resized.ToBytes()
			frame := v.createFrame(data)

			select {
			case v.framesCh <- frame:
				v.mu.Lock()
				v.framesEmitted++
				v.mu.Unlock()
			case <-ctx.Done():
				return
			case <-v.stopCh:
				return
			}
		}
	}
}

func (v *VideoSource) createFrame(data []byte) types.Frame {
	v.mu.Lock()
	seq := v.seq
	v.seq++
	v.mu.Unlock()

	return types.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     v.width,
		Height:    v.height,
		Data:      data,
		TraceID:   uuid.New().String(),
	}
}
