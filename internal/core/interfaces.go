package core

import (
	"context"

	"github.com/factory/beltsense/internal/state"
	"github.com/factory/beltsense/internal/types"
)

// StreamProvider provides a stream of video frames
type StreamProvider interface {
	// Start begins streaming frames
	Start(ctx context.Context) error
	// Frames returns a channel of frames; it closes on end-of-stream
	Frames() <-chan types.Frame
	// Stop stops the stream and releases the capture device
	Stop() error
	// Stats returns stream statistics
	Stats() types.StreamStats
}

// ObjectExtractor converts a raw frame into a measurement of the largest
// qualifying object
type ObjectExtractor interface {
	Extract(frame types.Frame) (types.Measurement, error)
}

// TelemetryChannel is the wire-level telemetry transport
type TelemetryChannel interface {
	// Connect establishes connection to the broker
	Connect(ctx context.Context) error
	// Publish publishes a payload to a topic
	Publish(topic string, payload []byte, qos byte) error
	// SubscribeControl subscribes the handler to the control topic
	SubscribeControl(handler func(topic string, payload []byte)) error
	// Disconnect closes the connection
	Disconnect() error
	// IsConnected reports connection status
	IsConnected() bool
}

// DisplayFunc renders a frame with the current assembly snapshot. It is
// a read-only consumer of snapshots; the core never depends on what it
// draws.
type DisplayFunc func(frame types.Frame, snap state.Snapshot)
