package recognition

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"faceattend/internal/attendance"
	"faceattend/internal/face"
	"faceattend/internal/gallery"
	"faceattend/internal/store"
)

// fakeDetector returns canned regions, one response per call when queued.
type fakeDetector struct {
	queued  [][]face.Region
	regions []face.Region
	err     error
}

func (d *fakeDetector) Detect(_ context.Context, _ image.Image) ([]face.Region, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(d.queued) > 0 {
		next := d.queued[0]
		d.queued = d.queued[1:]
		return next, nil
	}
	return d.regions, nil
}

func liveImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func flatImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	return img
}

func fullRegion(embedding []float64) face.Region {
	return face.Region{
		Box:       face.BoundingBox{Top: 0, Right: 8, Bottom: 8, Left: 0},
		Embedding: embedding,
	}
}

func newService(t *testing.T, detector face.Detector) (*Service, *attendance.Ledger, *gallery.Gallery) {
	t.Helper()
	docs, err := store.NewDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("new documents: %v", err)
	}
	g := gallery.New(docs)
	ledger := attendance.NewLedger(docs)
	svc := NewService(detector, face.NewEstimator(30.0, 0.8), face.NewMatcher(0.6), g, ledger)
	return svc, ledger, g
}

var aliceEmbedding = []float64{0.25, 0.5, 0.75}

func registerAlice(t *testing.T, svc *Service, detector *fakeDetector) gallery.Student {
	t.Helper()
	detector.regions = []face.Region{fullRegion(aliceEmbedding)}
	student, err := svc.Register(context.Background(), "Alice", "R-42", "", []image.Image{liveImage()}, time.Now())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return student
}

func TestRegisterAndRecognizeFlow(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, _ := newService(t, detector)
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.Local)

	student := registerAlice(t, svc, detector)
	if student.ID == "" || student.Name != "Alice" || student.RollNumber != "R-42" {
		t.Fatalf("unexpected student: %+v", student)
	}

	result, err := svc.Recognize(context.Background(), liveImage(), now)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(result.Recognized) != 1 {
		t.Fatalf("expected one recognition, got %d", len(result.Recognized))
	}
	rec := result.Recognized[0]
	if !rec.Recognized || !rec.IsLive {
		t.Fatalf("expected live recognized face, got %+v", rec)
	}
	if rec.StudentID == nil || *rec.StudentID != student.ID {
		t.Fatalf("expected student id %s, got %v", student.ID, rec.StudentID)
	}
	if rec.StudentName == nil || *rec.StudentName != "Alice" {
		t.Fatalf("expected student name Alice, got %v", rec.StudentName)
	}
	if rec.Confidence != 1.0 {
		t.Fatalf("identical embedding must yield confidence 1.0, got %g", rec.Confidence)
	}
	if len(result.Marked) != 1 || result.Marked[0].StudentID != student.ID {
		t.Fatalf("expected one new attendance record, got %+v", result.Marked)
	}

	// second recognition same day: still recognized, nothing newly marked
	again, err := svc.Recognize(context.Background(), liveImage(), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("recognize again: %v", err)
	}
	if len(again.Recognized) != 1 || !again.Recognized[0].Recognized {
		t.Fatalf("expected repeat recognition, got %+v", again.Recognized)
	}
	if len(again.Marked) != 0 {
		t.Fatalf("already-marked student must not be re-marked, got %+v", again.Marked)
	}
}

func TestRecognizeSpoofSkipsMatchingAndLedger(t *testing.T) {
	detector := &fakeDetector{}
	svc, ledger, _ := newService(t, detector)
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.Local)

	registerAlice(t, svc, detector)

	// flat frame: liveness score 0, below the 0.8 gate
	detector.regions = []face.Region{fullRegion(aliceEmbedding)}
	result, err := svc.Recognize(context.Background(), flatImage(), now)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(result.Faces) != 1 || result.Faces[0].IsLive {
		t.Fatalf("expected one non-live face, got %+v", result.Faces)
	}
	rec := result.Recognized[0]
	if rec.Recognized || rec.IsLive || rec.StudentID != nil {
		t.Fatalf("spoofed face must not be recognized: %+v", rec)
	}
	if rec.Message != MsgSpoof {
		t.Fatalf("expected spoof message, got %q", rec.Message)
	}
	if rec.Confidence != 0 {
		t.Fatalf("spoofed face must report confidence 0, got %g", rec.Confidence)
	}
	if len(result.Marked) != 0 {
		t.Fatalf("spoofed face must not mark attendance, got %+v", result.Marked)
	}

	sheet, _ := ledger.ForDate(now.Format(attendance.DateFormat))
	if len(sheet.Records) != 0 {
		t.Fatalf("ledger must stay untouched, got %d records", len(sheet.Records))
	}
}

func TestRecognizeUnknownFace(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, _ := newService(t, detector)

	registerAlice(t, svc, detector)

	// far embedding: distance >= 1, confidence saturates at 0
	detector.regions = []face.Region{fullRegion([]float64{9, 9, 9})}
	result, err := svc.Recognize(context.Background(), liveImage(), time.Now())
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	rec := result.Recognized[0]
	if rec.Recognized || rec.StudentID != nil {
		t.Fatalf("unknown face must not match: %+v", rec)
	}
	if !rec.IsLive {
		t.Fatal("unknown live face must still report is_live true")
	}
	if rec.Message != MsgNoMatch {
		t.Fatalf("expected no-match message, got %q", rec.Message)
	}
	if len(result.Marked) != 0 {
		t.Fatalf("no match must not mark attendance, got %+v", result.Marked)
	}
}

func TestRecognizeNoFaces(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, _ := newService(t, detector)

	result, err := svc.Recognize(context.Background(), liveImage(), time.Now())
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(result.Faces) != 0 || len(result.Recognized) != 0 || len(result.Marked) != 0 {
		t.Fatalf("empty frame must yield empty result, got %+v", result)
	}
}

func TestRecognizeMultipleFacesIndependent(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, _ := newService(t, detector)
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.Local)

	registerAlice(t, svc, detector)

	detector.regions = []face.Region{
		fullRegion(aliceEmbedding),
		fullRegion([]float64{9, 9, 9}),
	}
	result, err := svc.Recognize(context.Background(), liveImage(), now)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(result.Recognized) != 2 {
		t.Fatalf("expected 2 recognitions, got %d", len(result.Recognized))
	}
	if !result.Recognized[0].Recognized || result.Recognized[1].Recognized {
		t.Fatalf("expected match then no-match, got %+v", result.Recognized)
	}
	if result.Recognized[0].ID != 0 || result.Recognized[1].ID != 1 {
		t.Fatalf("recognition ids must index the detected faces, got %+v", result.Recognized)
	}
	if len(result.Marked) != 1 {
		t.Fatalf("expected one attendance record, got %d", len(result.Marked))
	}
}

func TestRegisterRejectsWrongFaceCount(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, g := newService(t, detector)

	// image 2 of 3 has two faces: whole registration aborts, nothing persisted
	detector.queued = [][]face.Region{
		{fullRegion(aliceEmbedding)},
		{fullRegion(aliceEmbedding), fullRegion([]float64{1, 2, 3})},
		{fullRegion(aliceEmbedding)},
	}
	imgs := []image.Image{liveImage(), liveImage(), liveImage()}
	_, err := svc.Register(context.Background(), "Alice", "", "", imgs, time.Now())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if err.Error() != "expected one face in the image, found 2" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	students, _ := g.List()
	if len(students) != 0 {
		t.Fatalf("failed registration must leave no student, got %+v", students)
	}
	candidates, _, _ := g.Snapshot()
	if len(candidates) != 0 {
		t.Fatalf("failed registration must leave no embeddings, got %+v", candidates)
	}
}

func TestRegisterRejectsZeroFaces(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, _ := newService(t, detector)

	_, err := svc.Register(context.Background(), "Alice", "", "", []image.Image{liveImage()}, time.Now())
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for zero faces, got %v", err)
	}
	if err.Error() != "expected one face in the image, found 0" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRegisterRejectsSpoofedImage(t *testing.T) {
	detector := &fakeDetector{regions: []face.Region{fullRegion(aliceEmbedding)}}
	svc, _, g := newService(t, detector)

	_, err := svc.Register(context.Background(), "Alice", "", "", []image.Image{flatImage()}, time.Now())
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for non-live image, got %v", err)
	}
	if err.Error() != "live face required for registration" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	students, _ := g.List()
	if len(students) != 0 {
		t.Fatal("spoofed enrollment must not create a student")
	}
}

func TestRegisterRequiresNameAndImages(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, _ := newService(t, detector)

	if _, err := svc.Register(context.Background(), "", "", "", []image.Image{liveImage()}, time.Now()); !IsValidation(err) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "Alice", "", "", nil, time.Now()); !IsValidation(err) {
		t.Fatalf("expected validation error for missing images, got %v", err)
	}
}

func TestRegisterMultipleImagesCollectsAllEmbeddings(t *testing.T) {
	detector := &fakeDetector{}
	svc, _, g := newService(t, detector)

	detector.queued = [][]face.Region{
		{fullRegion([]float64{0.1, 0.1, 0.1})},
		{fullRegion([]float64{0.2, 0.2, 0.2})},
	}
	student, err := svc.Register(context.Background(), "Bob", "", "", []image.Image{liveImage(), liveImage()}, time.Now())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	candidates, _, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(candidates) != 1 || candidates[0].StudentID != student.ID {
		t.Fatalf("expected one candidate for %s, got %+v", student.ID, candidates)
	}
	if len(candidates[0].Embeddings) != 2 {
		t.Fatalf("expected one embedding per enrollment image, got %d", len(candidates[0].Embeddings))
	}
}
