package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// captureLoop consumes frames from the source, hands them to the worker
// through the slot, and drives the display path. End-of-stream shuts the
// whole service down.
func (s *Service) captureLoop(ctx context.Context) {
	defer s.wg.Done()

	slog.Info("capture loop started")

	frameCount := uint64(0)
	lastLog := time.Now()
	logInterval := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			slog.Info("capture loop stopping", "total_frames", frameCount)
			return

		case frame, ok := <-s.stream.Frames():
			if !ok || frame.Empty() {
				slog.Info("frame source exhausted, initiating shutdown",
					"total_frames", frameCount,
				)
				s.cancelRun()
				return
			}

			frameCount++

			// Reject-on-busy hand-off: if the worker still holds the
			// previous frame this one is dropped, keeping the pipeline
			// fresh instead of backlogged.
			if !s.slot.TryPut(frame) {
				slog.Debug("frame dropped, worker busy",
					"frame_seq", frame.Seq,
					"trace_id", frame.TraceID,
				)
			}

			// Display path: read-only snapshot consumer.
			if s.display != nil {
				s.display(frame, s.assembly.Snapshot())
			}

			if time.Since(lastLog) >= logInterval {
				streamStats := s.stream.Stats()
				slotStats := s.slot.Stats()
				snap := s.assembly.Snapshot()

				slog.Debug("pipeline stats",
					"frames_captured", frameCount,
					"stream_fps_real", float64(int(streamStats.FPSReal*100))/100,
					"slot_accepted", slotStats.Accepted,
					"slot_rejected", slotStats.Rejected,
					"total_parts", snap.TotalParts,
					"total_defects", snap.TotalDefects,
					"last_seq", frame.Seq,
				)

				if slotStats.ConsecutiveRejects > 30 {
					slog.Warn("worker falling behind, dropping frames",
						"consecutive_rejects", slotStats.ConsecutiveRejects,
					)
				}

				lastLog = time.Now()
			}
		}
	}
}

// processLoop is the single worker: it drains the slot, measures the
// frame, classifies it and commits the verdict to the shared state.
// It exits when the slot is closed during shutdown.
func (s *Service) processLoop() {
	defer s.wg.Done()

	slog.Info("processing loop started")

	for {
		frame, ok := s.slot.Take()
		if !ok {
			slog.Info("processing loop stopped",
				"frames_processed", atomic.LoadUint64(&s.framesProcessed),
			)
			return
		}

		m, err := s.extractor.Extract(frame)
		if err != nil {
			slog.Error("object extraction failed",
				"frame_seq", frame.Seq,
				"trace_id", frame.TraceID,
				"error", err,
			)
			continue
		}

		verdict, next := s.classifier.Classify(m, s.clsState)
		s.clsState = next
		s.assembly.ApplyVerdict(m, verdict)
		atomic.AddUint64(&s.framesProcessed, 1)

		if verdict.NewPart {
			slog.Debug("new part on belt",
				"frame_seq", frame.Seq,
				"area", m.Area,
			)
		}
		if verdict.DefectEvent {
			snap := s.assembly.Snapshot()
			slog.Info("defect confirmed",
				"frame_seq", frame.Seq,
				"area", m.Area,
				"total_parts", snap.TotalParts,
				"total_defects", snap.TotalDefects,
			)
		}
	}
}
