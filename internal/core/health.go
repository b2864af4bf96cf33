package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthStatus represents the health state of the beltsense service
type HealthStatus struct {
	Status          string `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds   int64  `json:"uptime_seconds"`
	StreamConnected bool   `json:"stream_connected"`
	MQTTConnected   bool   `json:"mqtt_connected"`
	FramesProcessed uint64 `json:"frames_processed"`
	FramesRejected  uint64 `json:"frames_rejected"`
	TotalParts      uint64 `json:"total_parts"`
	TotalDefects    uint64 `json:"total_defects"`
}

// HealthCheck returns the current health status of the service
func (s *Service) HealthCheck() HealthStatus {
	s.mu.RLock()
	running := s.isRunning
	started := s.started
	s.mu.RUnlock()

	snap := s.assembly.Snapshot()
	slotStats := s.slot.Stats()

	status := HealthStatus{
		Status:          "healthy",
		UptimeSeconds:   int64(time.Since(started).Seconds()),
		FramesProcessed: atomic.LoadUint64(&s.framesProcessed),
		FramesRejected:  slotStats.Rejected,
		TotalParts:      snap.TotalParts,
		TotalDefects:    snap.TotalDefects,
	}

	if running && s.stream != nil {
		status.StreamConnected = s.stream.Stats().IsConnected
	}
	if s.channel != nil {
		status.MQTTConnected = s.channel.IsConnected()
	}

	if !running {
		status.Status = "unhealthy"
	} else if !status.StreamConnected || !status.MQTTConnected {
		status.Status = "degraded"
	}

	return status
}

// LivenessHandler handles /health (simple liveness check)
func (s *Service) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler handles /readiness (detailed readiness check)
func (s *Service) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := s.HealthCheck()

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(health)
}

// MetricsHandler handles /metrics with plain-text counters
func (s *Service) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	health := s.HealthCheck()
	instance := s.cfg.InstanceID

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "beltsense_uptime_seconds{instance=%q} %d\n", instance, health.UptimeSeconds)
	fmt.Fprintf(w, "beltsense_frames_processed{instance=%q} %d\n", instance, health.FramesProcessed)
	fmt.Fprintf(w, "beltsense_frames_rejected{instance=%q} %d\n", instance, health.FramesRejected)
	fmt.Fprintf(w, "beltsense_total_parts{instance=%q} %d\n", instance, health.TotalParts)
	fmt.Fprintf(w, "beltsense_total_defects{instance=%q} %d\n", instance, health.TotalDefects)
}

// StartHealthServer starts the HTTP health check server on the given
// port. Non-blocking.
func (s *Service) StartHealthServer(port string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.LivenessHandler)
	mux.HandleFunc("/readiness", s.ReadinessHandler)
	mux.HandleFunc("/metrics", s.MetricsHandler)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting health check server",
		"port", port,
		"endpoints", []string{"/health", "/readiness", "/metrics"},
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health check server failed", "error", err)
		}
	}()

	return nil
}
