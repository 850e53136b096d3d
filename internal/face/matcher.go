package face

import "math"

// Candidate is one student's reference embeddings, in registration order.
type Candidate struct {
	StudentID  string
	Embeddings [][]float64
}

// Match is a gallery hit above the confidence threshold.
type Match struct {
	StudentID  string
	Confidence float64
}

// Matcher runs nearest-neighbor search over the gallery.
// Linear scan over every stored embedding; fine at classroom scale,
// a bottleneck once the gallery grows large.
type Matcher struct {
	threshold float64
}

// NewMatcher builds a matcher. A non-positive threshold falls back to 0.6.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = 0.6
	}
	return &Matcher{threshold: threshold}
}

// Confidence converts a distance to a similarity in [0,1].
// Identical embeddings score 1.0; anything at distance >= 1 scores 0.
func Confidence(distance float64) float64 {
	return 1.0 - math.Min(distance, 1.0)
}

// Match returns the best candidate strictly above the threshold, or false.
// A later candidate must be strictly better to replace the current best,
// so exact ties keep the first-seen student.
func (m *Matcher) Match(query []float64, candidates []Candidate) (Match, bool) {
	var best Match
	found := false
	for _, cand := range candidates {
		for _, emb := range cand.Embeddings {
			confidence := Confidence(Distance(query, emb))
			if confidence > m.threshold && confidence > best.Confidence {
				best = Match{StudentID: cand.StudentID, Confidence: confidence}
				found = true
			}
		}
	}
	return best, found
}
