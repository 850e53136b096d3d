package face

import (
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

// Estimator scores how likely a face region belongs to a live subject.
//
// The heuristic is texture variance: flat reproductions (printed photos,
// screens held to the camera) tend to have low pixel-intensity spread.
// It is a placeholder signal, not a real anti-spoofing guarantee.
type Estimator struct {
	divisor   float64
	threshold float64
}

// NewEstimator builds an estimator. Non-positive arguments fall back to the
// reference scale: divisor 30.0, threshold 0.8.
func NewEstimator(divisor, threshold float64) *Estimator {
	if divisor <= 0 {
		divisor = 30.0
	}
	if threshold <= 0 {
		threshold = 0.8
	}
	return &Estimator{divisor: divisor, threshold: threshold}
}

// Score crops the image to the region and returns min(1, stddev/divisor),
// where stddev is the population standard deviation of the RGB channel
// values on the 0..255 scale. A degenerate crop scores 0.
func (e *Estimator) Score(img image.Image, box BoundingBox) float64 {
	crop := imaging.Crop(img, box.Rect())
	bounds := crop.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0
	}

	samples := make([]float64, 0, bounds.Dx()*bounds.Dy()*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := crop.NRGBAAt(x, y)
			samples = append(samples, float64(c.R), float64(c.G), float64(c.B))
		}
	}

	score := stat.PopStdDev(samples, nil) / e.divisor
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// IsLive classifies a score. The threshold comparison is strict.
func (e *Estimator) IsLive(score float64) bool {
	return score > e.threshold
}
