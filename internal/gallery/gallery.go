package gallery

import (
	"fmt"
	"time"

	"faceattend/internal/face"
	"faceattend/internal/store"
)

const (
	studentsDoc  = "students/students.json"
	encodingsDoc = "students/encodings.json"
	lockKey      = "gallery"
)

// Student is a registered person. Created once; never updated or deleted.
type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type studentsFile struct {
	Students []Student `json:"students"`
}

// encodings are persisted as studentID -> list of plain numeric arrays.
type encodingsFile map[string][][]float64

// Gallery owns the students collection and their reference embeddings.
type Gallery struct {
	docs *store.Documents
}

// New creates a gallery over the given document store.
func New(docs *store.Documents) *Gallery {
	return &Gallery{docs: docs}
}

// List returns all registered students in registration order.
func (g *Gallery) List() ([]Student, error) {
	var doc studentsFile
	if err := g.docs.Load(studentsDoc, &doc); err != nil {
		return nil, err
	}
	if doc.Students == nil {
		doc.Students = []Student{}
	}
	return doc.Students, nil
}

// Snapshot returns the match candidates in registration order plus a
// student lookup table. The two views come from one consistent read.
func (g *Gallery) Snapshot() ([]face.Candidate, map[string]Student, error) {
	var doc studentsFile
	if err := g.docs.Load(studentsDoc, &doc); err != nil {
		return nil, nil, err
	}
	enc := encodingsFile{}
	if err := g.docs.Load(encodingsDoc, &enc); err != nil {
		return nil, nil, err
	}

	byID := make(map[string]Student, len(doc.Students))
	candidates := make([]face.Candidate, 0, len(doc.Students))
	for _, s := range doc.Students {
		byID[s.ID] = s
		if embeddings, ok := enc[s.ID]; ok {
			candidates = append(candidates, face.Candidate{StudentID: s.ID, Embeddings: embeddings})
		}
	}
	return candidates, byID, nil
}

// Add appends a student and their embeddings under the gallery lock.
// The student document is written first; if the encodings write fails the
// student entry is rolled back so no half-registered state survives.
func (g *Gallery) Add(student Student, embeddings [][]float64) error {
	if student.ID == "" {
		return fmt.Errorf("student id required")
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("at least one embedding required")
	}

	unlock := g.docs.Lock(lockKey)
	defer unlock()

	var doc studentsFile
	if err := g.docs.Load(studentsDoc, &doc); err != nil {
		return err
	}
	enc := encodingsFile{}
	if err := g.docs.Load(encodingsDoc, &enc); err != nil {
		return err
	}

	prev := doc.Students
	doc.Students = append(append([]Student{}, prev...), student)
	if err := g.docs.Save(studentsDoc, doc); err != nil {
		return err
	}

	enc[student.ID] = embeddings
	if err := g.docs.Save(encodingsDoc, enc); err != nil {
		doc.Students = prev
		if rbErr := g.docs.Save(studentsDoc, doc); rbErr != nil {
			return fmt.Errorf("save encodings: %v (student rollback also failed: %w)", err, rbErr)
		}
		return fmt.Errorf("save encodings: %w", err)
	}
	return nil
}
