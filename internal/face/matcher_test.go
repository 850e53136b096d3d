package face

import (
	"math"
	"testing"
)

func TestConfidence(t *testing.T) {
	if got := Confidence(0); got != 1.0 {
		t.Fatalf("expected confidence 1.0 at distance 0, got %g", got)
	}
	if got := Confidence(1.0); got != 0 {
		t.Fatalf("expected confidence 0 at distance 1, got %g", got)
	}
	if got := Confidence(2.5); got != 0 {
		t.Fatalf("expected confidence saturated at 0 beyond distance 1, got %g", got)
	}
	// monotonically decreasing in distance
	prev := Confidence(0)
	for d := 0.1; d < 1.0; d += 0.1 {
		cur := Confidence(d)
		if cur >= prev {
			t.Fatalf("confidence not strictly decreasing at distance %g", d)
		}
		prev = cur
	}
}

func TestDistance(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{3, 4, 0}
	if got := Distance(a, b); got != 5 {
		t.Fatalf("expected distance 5, got %g", got)
	}
	if got := Distance(a, a); got != 0 {
		t.Fatalf("expected distance 0 for identical vectors, got %g", got)
	}
	if got := Distance(a, []float64{1, 2}); !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf for mismatched lengths, got %g", got)
	}
}

// shifted returns an embedding at exactly the given distance from origin.
func shifted(distance float64) []float64 {
	return []float64{distance, 0, 0}
}

func TestMatchThresholdBoundary(t *testing.T) {
	m := NewMatcher(0.6)
	query := []float64{0, 0, 0}

	// distance 0.4 -> confidence exactly 0.6: rejected by the strict comparison
	candidates := []Candidate{{StudentID: "s1", Embeddings: [][]float64{shifted(0.4)}}}
	if _, ok := m.Match(query, candidates); ok {
		t.Fatal("confidence exactly at threshold must be rejected")
	}

	// just past the boundary: accepted
	candidates = []Candidate{{StudentID: "s1", Embeddings: [][]float64{shifted(0.39999)}}}
	match, ok := m.Match(query, candidates)
	if !ok {
		t.Fatal("confidence above threshold must be accepted")
	}
	if match.StudentID != "s1" {
		t.Fatalf("expected s1, got %s", match.StudentID)
	}
	if match.Confidence <= 0.6 {
		t.Fatalf("expected confidence > 0.6, got %g", match.Confidence)
	}
}

func TestMatchPicksBestAcrossStudents(t *testing.T) {
	m := NewMatcher(0.6)
	query := []float64{0, 0, 0}
	candidates := []Candidate{
		{StudentID: "far", Embeddings: [][]float64{shifted(0.35)}},
		{StudentID: "near", Embeddings: [][]float64{shifted(0.3), shifted(0.1)}},
	}
	match, ok := m.Match(query, candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.StudentID != "near" {
		t.Fatalf("expected best student near, got %s", match.StudentID)
	}
	if math.Abs(match.Confidence-0.9) > 1e-9 {
		t.Fatalf("expected confidence 0.9, got %g", match.Confidence)
	}
}

func TestMatchTieKeepsFirstSeen(t *testing.T) {
	m := NewMatcher(0.6)
	query := []float64{0, 0, 0}
	candidates := []Candidate{
		{StudentID: "first", Embeddings: [][]float64{shifted(0.2)}},
		{StudentID: "second", Embeddings: [][]float64{shifted(0.2)}},
	}
	match, ok := m.Match(query, candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.StudentID != "first" {
		t.Fatalf("exact tie must keep first-seen candidate, got %s", match.StudentID)
	}
}

func TestMatchEmptyGallery(t *testing.T) {
	m := NewMatcher(0.6)
	if _, ok := m.Match([]float64{1, 2, 3}, nil); ok {
		t.Fatal("empty gallery must not match")
	}
}

func TestMatchIgnoresIncomparableEmbeddings(t *testing.T) {
	m := NewMatcher(0.6)
	query := []float64{0, 0, 0}
	candidates := []Candidate{
		{StudentID: "bad", Embeddings: [][]float64{{1, 2}}},
		{StudentID: "good", Embeddings: [][]float64{shifted(0.1)}},
	}
	match, ok := m.Match(query, candidates)
	if !ok || match.StudentID != "good" {
		t.Fatalf("expected good to match despite incomparable embedding, got %+v ok=%v", match, ok)
	}
}
