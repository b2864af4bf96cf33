package types

import "time"

// Frame represents a single video frame
type Frame struct {
	// Seq is the monotonic sequence number
	Seq uint64
	// Timestamp is when the frame was captured/decoded
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains the frame data (BGR24 format)
	Data []byte
	// TraceID is a unique identifier for tracing a frame across the pipeline
	TraceID string
}

// Empty reports whether the frame carries no pixel data.
// An empty frame from the source signals end-of-stream.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Rect is a rectangle in pixel coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the pixel area of the rectangle
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Measurement is the result of extracting the largest qualifying object
// from one frame. Present is false when no qualifying object was found;
// Area is then 0 and Region is meaningless.
type Measurement struct {
	Area    int
	Region  Rect
	Present bool
}

// StreamStats contains frame source statistics
type StreamStats struct {
	FrameCount  uint64
	FPSTarget   int
	FPSReal     float64
	Resolution  string
	IsConnected bool
	Errors      uint64
}
