package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/attendance"
	"faceattend/internal/face"
	"faceattend/internal/gallery"
	"faceattend/internal/metrics"
)

// Messages surfaced to clients; fixed strings the frontend keys off.
const (
	MsgSpoof   = "Potential spoofing attempt detected!"
	MsgNoMatch = "Face not recognized"
	MsgNoFaces = "No faces detected"
)

// ValidationError marks request-level failures (bad enrollment images,
// missing fields). Handlers map these to 400 responses.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DetectedFace is the per-face summary echoed to the client.
type DetectedFace struct {
	Location face.BoundingBox `json:"location"`
	IsLive   bool             `json:"is_live"`
}

// Recognition is the per-face decision.
type Recognition struct {
	ID          int     `json:"id"`
	Recognized  bool    `json:"recognized"`
	StudentID   *string `json:"student_id"`
	StudentName *string `json:"student_name"`
	Confidence  float64 `json:"confidence"`
	IsLive      bool    `json:"is_live"`
	Message     string  `json:"message,omitempty"`
}

// Result is the full outcome of one processed frame.
type Result struct {
	Faces      []DetectedFace      `json:"faces"`
	Recognized []Recognition       `json:"recognized"`
	Marked     []attendance.Record `json:"marked_attendance"`
}

// Service runs the recognition and registration pipelines:
// detector -> liveness gate -> gallery match -> attendance ledger.
type Service struct {
	detector face.Detector
	liveness *face.Estimator
	matcher  *face.Matcher
	gallery  *gallery.Gallery
	ledger   *attendance.Ledger
}

// NewService wires the pipeline.
func NewService(detector face.Detector, liveness *face.Estimator, matcher *face.Matcher, g *gallery.Gallery, l *attendance.Ledger) *Service {
	return &Service{detector: detector, liveness: liveness, matcher: matcher, gallery: g, ledger: l}
}

// Recognize processes one frame. Every detected face is scored for
// liveness; spoofed faces never reach the matcher or the ledger. Matched
// live faces are marked present for now's calendar day in one batch, and
// only records actually created this call are reported back.
func (s *Service) Recognize(ctx context.Context, img image.Image, now time.Time) (Result, error) {
	result := Result{
		Faces:      []DetectedFace{},
		Recognized: []Recognition{},
		Marked:     []attendance.Record{},
	}

	regions, err := s.detector.Detect(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("detect faces: %w", err)
	}
	if len(regions) == 0 {
		return result, nil
	}
	metrics.FacesDetected.Add(float64(len(regions)))

	candidates, students, err := s.gallery.Snapshot()
	if err != nil {
		return Result{}, fmt.Errorf("load gallery: %w", err)
	}

	var toMark []attendance.Candidate
	for i, region := range regions {
		score := s.liveness.Score(img, region.Box)
		live := s.liveness.IsLive(score)
		result.Faces = append(result.Faces, DetectedFace{Location: region.Box, IsLive: live})

		if !live {
			metrics.SpoofRejections.Inc()
			result.Recognized = append(result.Recognized, Recognition{ID: i, Message: MsgSpoof})
			continue
		}

		match, ok := s.matcher.Match(region.Embedding, candidates)
		if !ok {
			result.Recognized = append(result.Recognized, Recognition{ID: i, IsLive: true, Message: MsgNoMatch})
			continue
		}
		metrics.Matches.Inc()

		name := "Unknown"
		if student, ok := students[match.StudentID]; ok {
			name = student.Name
		}
		id := match.StudentID
		result.Recognized = append(result.Recognized, Recognition{
			ID:          i,
			Recognized:  true,
			StudentID:   &id,
			StudentName: &name,
			Confidence:  match.Confidence,
			IsLive:      true,
		})
		toMark = append(toMark, attendance.Candidate{StudentID: id, StudentName: name, Confidence: match.Confidence})
	}

	if len(toMark) > 0 {
		added, err := s.ledger.MarkBatch(toMark, now)
		if err != nil {
			return Result{}, fmt.Errorf("mark attendance: %w", err)
		}
		result.Marked = append(result.Marked, added...)
		metrics.AttendanceMarked.Add(float64(len(added)))
	}
	return result, nil
}

// Register enrolls a new student from one or more images. Every image must
// contain exactly one live face; any failure aborts the whole registration
// before any state is written.
func (s *Service) Register(ctx context.Context, name, rollNumber, photoURL string, images []image.Image, now time.Time) (gallery.Student, error) {
	if name == "" {
		return gallery.Student{}, Validation("name required")
	}
	if len(images) == 0 {
		return gallery.Student{}, Validation("at least one image required")
	}

	embeddings := make([][]float64, 0, len(images))
	for _, img := range images {
		regions, err := s.detector.Detect(ctx, img)
		if err != nil {
			return gallery.Student{}, fmt.Errorf("detect faces: %w", err)
		}
		if len(regions) != 1 {
			return gallery.Student{}, Validation("expected one face in the image, found %d", len(regions))
		}
		if !s.liveness.IsLive(s.liveness.Score(img, regions[0].Box)) {
			return gallery.Student{}, Validation("live face required for registration")
		}
		embeddings = append(embeddings, regions[0].Embedding)
	}

	student := gallery.Student{
		ID:         uuid.NewString(),
		Name:       name,
		RollNumber: rollNumber,
		PhotoURL:   photoURL,
		CreatedAt:  now,
	}
	if err := s.gallery.Add(student, embeddings); err != nil {
		return gallery.Student{}, fmt.Errorf("save registration: %w", err)
	}
	return student, nil
}
