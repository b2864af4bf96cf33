//go:build gocv
// +build gocv

package inspect

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"github.com/factory/beltsense/internal/types"
)

// Extractor finds the largest qualifying object in a frame and measures
// its bounding region. Deterministic per frame, no shared state.
type Extractor struct {
	// MinObjectWidth filters contour noise; regions narrower than this
	// are not candidate parts.
	MinObjectWidth int
	// ThresholdValue is the binary threshold emphasizing the part
	// against the belt.
	ThresholdValue float32
}

// NewExtractor creates an extractor tuned for the belt camera.
func NewExtractor() *Extractor {
	return &Extractor{
		MinObjectWidth: 30,
		ThresholdValue: 200,
	}
}

// Extract measures the largest qualifying object in the frame.
// Returns a Measurement with Present=false when nothing qualifies;
// that is a normal outcome (empty belt), not an error.
func (e *Extractor) Extract(frame types.Frame) (types.Measurement, error) {
	if frame.Empty() {
		return types.Measurement{}, errors.New("empty frame")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return types.Measurement{}, err
	}
	defer mat.Close()

	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(mat, &img, gocv.ColorBGRToGray)

	// Smooth before morphology so single-pixel noise doesn't survive.
	gocv.GaussianBlur(img, &img, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	// OPEN removes background noise, CLOSE fills holes in the part,
	// a final OPEN cleans up what CLOSE reconnected.
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(img, &img, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(img, &img, gocv.MorphClose, kernel)
	gocv.MorphologyEx(img, &img, gocv.MorphOpen, kernel)

	gocv.Threshold(img, &img, e.ThresholdValue, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(img, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	// Pick the largest region that lies completely inside the camera
	// view with no overlapping edge.
	var best image.Rectangle
	bestArea := 0
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		area := rect.Dx() * rect.Dy()
		if area > bestArea && rect.Min.X > 0 && rect.Max.X < img.Cols() && rect.Dx() > e.MinObjectWidth {
			bestArea = area
			best = rect
		}
	}

	if bestArea == 0 {
		return types.Measurement{}, nil
	}

	return types.Measurement{
		Area: bestArea,
		Region: types.Rect{
			X:      best.Min.X,
			Y:      best.Min.Y,
			Width:  best.Dx(),
			Height: best.Dy(),
		},
		Present: true,
	}, nil
}
