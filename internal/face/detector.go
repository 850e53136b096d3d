package face

import (
	"context"
	"image"
	"math"
)

// BoundingBox locates a detected face within an image.
// Coordinates follow the top/right/bottom/left convention of the detection service.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Region is one detected face: where it is and its embedding vector.
type Region struct {
	Box       BoundingBox
	Embedding []float64
}

// Detector extracts face regions with embeddings from an image.
// Implementations are black boxes; the pipeline only depends on this contract.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Region, error)
}

// Distance returns the Euclidean distance between two embeddings.
// Mismatched vector lengths are incomparable and yield +Inf.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
