// Package telemetry implements the periodic defect-status publisher.
// It is decoupled from the processing path: it only ever reads the latest
// committed assembly snapshot at poll time, so confirmations between two
// cycles may be invisible to the channel. That is accepted; the counter
// stream is a cadence signal, not an event log.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/types"
)

// Channel accepts telemetry payloads. Satisfied by emitter.MQTTEmitter.
type Channel interface {
	Publish(topic string, payload []byte, qos byte) error
}

// Publisher periodically publishes the current defect status.
type Publisher struct {
	channel  Channel
	assembly *state.Assembly
	topic    string
	qos      byte
	interval time.Duration
}

// New creates a publisher for the given channel and assembly record.
func New(channel Channel, assembly *state.Assembly, topic string, qos byte, interval time.Duration) *Publisher {
	return &Publisher{
		channel:  channel,
		assembly: assembly,
		topic:    topic,
		qos:      qos,
		interval: interval,
	}
}

// Run publishes the defect status every interval until ctx is cancelled.
// Send failures are logged and skipped; telemetry is fire-and-forget and
// must never stall or stop the loop.
func (p *Publisher) Run(ctx context.Context) {
	slog.Info("telemetry publisher started",
		"topic", p.topic,
		"interval", p.interval,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.publishOnce()

		select {
		case <-ctx.Done():
			slog.Info("telemetry publisher stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Publisher) publishOnce() {
	snap := p.assembly.Snapshot()

	payload, err := types.NewDefectStatus(snap.LastDefect).ToJSON()
	if err != nil {
		slog.Error("failed to marshal defect status", "error", err)
		return
	}

	if err := p.channel.Publish(p.topic, payload, p.qos); err != nil {
		slog.Warn("telemetry publish failed, will retry next cycle",
			"topic", p.topic,
			"error", err,
		)
	}
}
