package catalog

import (
	"fmt"
	"time"
)

// TimeSlot is a single weekly meeting of a section.
// Start and End are minutes since midnight; End is exclusive.
type TimeSlot struct {
	Day   time.Weekday `json:"day"`
	Start int          `json:"start"`
	End   int          `json:"end"`
}

// Overlaps reports whether two slots collide on the same day.
func (t TimeSlot) Overlaps(o TimeSlot) bool {
	if t.Day != o.Day {
		return false
	}
	return t.Start < o.End && o.Start < t.End
}

// Minutes returns the slot duration in minutes.
func (t TimeSlot) Minutes() int { return t.End - t.Start }

// String renders a slot as "Mon 09:00-10:30".
func (t TimeSlot) String() string {
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d",
		t.Day.String()[:3], t.Start/60, t.Start%60, t.End/60, t.End%60)
}

// Course is an entry in the term catalog.
type Course struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Department string   `json:"department"`
	Credits    int      `json:"credits"`
	Prereq     *Expr    `json:"prereq,omitempty"`
	Coreqs     []string `json:"coreqs,omitempty"`
}

// Section is a concrete offering of a course with meeting times and seats.
type Section struct {
	ID               string     `json:"id"`
	CourseID         string     `json:"courseId"`
	InstructorID     string     `json:"instructorId"`
	InstructorRating float64    `json:"instructorRating"` // 0..5
	Capacity         int        `json:"capacity"`
	Enrolled         int        `json:"enrolled"`
	Meetings         []TimeSlot `json:"meetings"`
}

// HasSeats reports whether the section had open seats at snapshot time.
func (s *Section) HasSeats() bool { return s.Enrolled < s.Capacity }

// CompletedCourse is one line of a student's transcript.
type CompletedCourse struct {
	CourseID string `json:"courseId"`
	Grade    string `json:"grade,omitempty"`
	Passed   bool   `json:"passed"`
}

// StudentRecord is the read-only academic history a solve runs against.
type StudentRecord struct {
	StudentID    string            `json:"studentId"`
	Completed    []CompletedCourse `json:"completed"`
	InProgress   []string          `json:"inProgress"`
	Requirements []string          `json:"requirements"` // remaining major requirements
	MinCredits   int               `json:"minCredits"`
	MaxCredits   int               `json:"maxCredits"`
}

// CompletedSet returns the set of passed course ids.
// Courses completed without a passing result do not satisfy prerequisites.
func (r *StudentRecord) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(r.Completed))
	for _, c := range r.Completed {
		if c.Passed {
			set[c.CourseID] = true
		}
	}
	return set
}

// InProgressSet returns the set of currently enrolled course ids.
func (r *StudentRecord) InProgressSet() map[string]bool {
	set := make(map[string]bool, len(r.InProgress))
	for _, id := range r.InProgress {
		set[id] = true
	}
	return set
}
