package attendance

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/store"
)

// DateFormat is the calendar-day key for ledger documents.
const DateFormat = "2006-01-02"

// Record is one attendance event. At most one exists per student per day,
// and none is ever updated or removed.
type Record struct {
	ID          string  `json:"id"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Time        string  `json:"time"`
	Confidence  float64 `json:"confidence"`
}

// Sheet is the per-day ledger document.
type Sheet struct {
	Date    string   `json:"date"`
	Records []Record `json:"records"`
}

// Candidate is a recognized student to mark present.
type Candidate struct {
	StudentID   string
	StudentName string
	Confidence  float64
}

// Ledger manages per-day attendance sheets, one JSON document per date.
type Ledger struct {
	docs *store.Documents
}

// NewLedger creates a ledger over the given document store.
func NewLedger(docs *store.Documents) *Ledger {
	return &Ledger{docs: docs}
}

// ForDate returns the sheet for a date, empty if nothing is recorded yet.
func (l *Ledger) ForDate(date string) (Sheet, error) {
	sheet := Sheet{Date: date}
	if err := l.docs.Load(docName(date), &sheet); err != nil {
		return Sheet{}, err
	}
	sheet.Date = date
	if sheet.Records == nil {
		sheet.Records = []Record{}
	}
	return sheet, nil
}

// Dates lists every day with a ledger document, newest first.
func (l *Ledger) Dates() ([]string, error) {
	files, err := l.docs.List("attendance")
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f, ".json") {
			dates = append(dates, strings.TrimSuffix(f, ".json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// MarkIfAbsent records attendance for one student on now's calendar day.
// Returns nil when the student is already marked for that day.
func (l *Ledger) MarkIfAbsent(studentID, studentName string, confidence float64, now time.Time) (*Record, error) {
	added, err := l.MarkBatch([]Candidate{{StudentID: studentID, StudentName: studentName, Confidence: confidence}}, now)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, nil
	}
	return &added[0], nil
}

// MarkBatch marks every candidate not yet present on now's calendar day.
// The whole batch is one read-modify-write under the day's lock, and the
// sheet is persisted only when at least one record was actually added.
// Returns the newly created records; already-marked students are no-ops.
func (l *Ledger) MarkBatch(candidates []Candidate, now time.Time) ([]Record, error) {
	date := now.Format(DateFormat)

	unlock := l.docs.Lock("ledger:" + date)
	defer unlock()

	sheet := Sheet{Date: date}
	if err := l.docs.Load(docName(date), &sheet); err != nil {
		return nil, err
	}
	sheet.Date = date

	present := make(map[string]bool, len(sheet.Records))
	for _, r := range sheet.Records {
		present[r.StudentID] = true
	}

	var added []Record
	for _, cand := range candidates {
		if present[cand.StudentID] {
			continue
		}
		rec := Record{
			ID:          uuid.NewString(),
			StudentID:   cand.StudentID,
			StudentName: cand.StudentName,
			Time:        now.Format("15:04:05"),
			Confidence:  cand.Confidence,
		}
		sheet.Records = append(sheet.Records, rec)
		present[cand.StudentID] = true
		added = append(added, rec)
	}

	if len(added) == 0 {
		return nil, nil
	}
	if err := l.docs.Save(docName(date), sheet); err != nil {
		return nil, err
	}
	return added, nil
}

func docName(date string) string {
	return "attendance/" + date + ".json"
}
