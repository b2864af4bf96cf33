// Package core wires the beltsense pipeline: frame source → single-slot
// hand-off → processing worker → shared assembly state → telemetry
// publisher, and manages the lifecycle of all of it.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/factory/beltsense/internal/config"
	"github.com/factory/beltsense/internal/emitter"
	"github.com/factory/beltsense/internal/frameslot"
	"github.com/factory/beltsense/internal/inspect"
	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/stream"
	"github.com/factory/beltsense/internal/telemetry"
)

// Service is the main orchestrator
type Service struct {
	cfg *config.Config

	// Core components
	stream     StreamProvider
	extractor  ObjectExtractor
	channel    TelemetryChannel
	slot       *frameslot.Slot
	assembly   *state.Assembly
	classifier *inspect.Classifier
	display    DisplayFunc

	// Classifier temporal memory, owned exclusively by the processing
	// loop. Never read or written anywhere else.
	clsState inspect.State

	// Lifecycle management
	started         time.Time
	mu              sync.RWMutex
	wg              sync.WaitGroup
	isRunning       bool
	cancelRun       context.CancelFunc
	framesProcessed uint64
}

// New creates a new beltsense service instance from a config file path.
func New(configPath string) (*Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("configuration loaded",
		"instance_id", cfg.InstanceID,
		"line_id", cfg.LineID,
		"min_area", cfg.Detection.MinArea,
		"max_area", cfg.Detection.MaxArea,
	)

	s := &Service{
		cfg:        cfg,
		extractor:  inspect.NewExtractor(),
		channel:    emitter.NewMQTTEmitter(cfg),
		slot:       frameslot.New(),
		assembly:   state.New(),
		classifier: inspect.NewClassifier(cfg.Detection.MinArea, cfg.Detection.MaxArea),
	}

	return s, nil
}

// SetDisplay attaches an optional display renderer called from the
// capture loop with each frame and the latest snapshot.
func (s *Service) SetDisplay(fn DisplayFunc) {
	s.display = fn
}

// Config returns the loaded configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Run starts the service and blocks until the context is cancelled or
// the frame source is exhausted.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	s.isRunning = true
	s.started = time.Now()
	s.mu.Unlock()

	// Cancellable so end-of-stream can shut the whole system down.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()

	slog.Info("beltsense service starting", "instance_id", s.cfg.InstanceID)

	// Initialize the frame source. An unopenable device is startup-fatal.
	if s.stream == nil {
		provider, err := s.newStreamProvider()
		if err != nil {
			return fmt.Errorf("failed to open frame source: %w", err)
		}
		s.stream = provider
	}

	if err := s.stream.Start(ctx); err != nil {
		return fmt.Errorf("failed to start frame source: %w", err)
	}

	// Telemetry is best-effort: a dead broker degrades the service, it
	// never stops it. Paho keeps retrying in the background.
	if err := s.channel.Connect(ctx); err != nil {
		slog.Warn("telemetry channel unavailable, continuing degraded",
			"error", err,
			"broker", s.cfg.MQTT.Broker,
		)
	} else if err := s.channel.SubscribeControl(s.handleControlMessage); err != nil {
		slog.Warn("control topic subscription failed", "error", err)
	}

	publisher := telemetry.New(
		s.channel,
		s.assembly,
		s.cfg.MQTT.Topics.Defects,
		s.cfg.MQTT.QoS["defects"],
		time.Duration(s.cfg.Telemetry.IntervalS)*time.Second,
	)

	s.wg.Add(1)
	go s.processLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		publisher.Run(ctx)
	}()

	s.wg.Add(1)
	go s.captureLoop(ctx)

	slog.Info("beltsense service running",
		"topic", s.cfg.MQTT.Topics.Defects,
		"publish_interval_s", s.cfg.Telemetry.IntervalS,
	)

	<-ctx.Done()

	slog.Info("beltsense service run loop exiting")
	return nil
}

// newStreamProvider builds the configured frame source. The literal
// source "mock" selects the synthetic generator for broker-less runs.
func (s *Service) newStreamProvider() (StreamProvider, error) {
	if s.cfg.Video.Source == "mock" {
		slog.Info("using mock frame source")
		return stream.NewMockSource(s.cfg.Video.Width, s.cfg.Video.Height, 30, 0), nil
	}
	return stream.NewVideoSource(s.cfg.Video.Source, s.cfg.Video.Width, s.cfg.Video.Height)
}

// handleControlMessage logs messages arriving on the control topic.
func (s *Service) handleControlMessage(topic string, payload []byte) {
	slog.Info("control message received",
		"topic", topic,
		"payload", string(payload),
	)
}

// Shutdown performs graceful shutdown of all components
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	slog.Info("shutting down beltsense service")

	// Shutdown sequence (order is important!):
	// 1. Close the slot so a worker parked on an idle belt wakes up.
	s.slot.Close()

	// 2. Join all loops before touching shared resources.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("all loops finished")
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out waiting for loops: %w", ctx.Err())
	}

	// 3. Release the capture device; no goroutine can still be using it.
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			slog.Error("failed to stop frame source", "error", err)
		}
	}

	// 4. Close the telemetry channel.
	if s.channel != nil {
		if err := s.channel.Disconnect(); err != nil {
			slog.Error("failed to disconnect telemetry channel", "error", err)
		}
	}

	s.mu.Lock()
	uptime := time.Since(s.started)
	s.isRunning = false
	s.mu.Unlock()

	slog.Info("beltsense service shutdown complete", "uptime", uptime)

	return nil
}

// ShutdownTimeout returns the configured graceful shutdown timeout.
// Defaults to 5 seconds.
func (s *Service) ShutdownTimeout() time.Duration {
	timeout := time.Duration(s.cfg.ShutdownTimeoutS) * time.Second
	if timeout == 0 {
		return 5 * time.Second
	}
	return timeout
}

// Snapshot returns the current assembly snapshot (display path helper).
func (s *Service) Snapshot() state.Snapshot {
	return s.assembly.Snapshot()
}
