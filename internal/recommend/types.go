// Package recommend exposes the caller-facing contract of the
// recommendation engine and the service that runs one request end to
// end: eligibility filter, schedule search, formatting.
package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/prereq"
	"github.com/ombra/registrar/internal/solver"
)

// Request is one recommendation request. Transcript fields override the
// stored student record when present; otherwise the record is loaded by
// student id.
type Request struct {
	StudentID         string             `json:"studentId"`
	CompletedCourses  []string           `json:"completedCourses,omitempty"`
	InProgressCourses []string           `json:"inProgressCourses,omitempty"`
	MajorRequirements []string           `json:"majorRequirements,omitempty"`
	MinCredits        int                `json:"minCredits"`
	MaxCredits        int                `json:"maxCredits"`
	Preferences       solver.Preferences `json:"preferenceWeights"`
	SearchBudget      int                `json:"searchBudget,omitempty"`
}

// ScheduledCourse is one (course, section) line of a recommendation.
type ScheduledCourse struct {
	CourseID     string             `json:"courseId"`
	SectionID    string             `json:"sectionId"`
	Title        string             `json:"title"`
	InstructorID string             `json:"instructorId,omitempty"`
	TimeSlots    []catalog.TimeSlot `json:"timeSlots"`
	Credits      int                `json:"credits"`
}

// Response is a successful recommendation.
type Response struct {
	ScheduleID   string            `json:"scheduleId"`
	Courses      []ScheduledCourse `json:"courses"`
	TotalCredits int               `json:"totalCredits"`
	Score        float64           `json:"score"`
	Notes        []string          `json:"notes"`
	Partial      bool              `json:"partial"`
}

// ErrorResponse is the uniform failure shape returned to callers.
type ErrorResponse struct {
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

// Error kinds surfaced to callers.
const (
	KindMalformedCatalog   = "MalformedCatalog"
	KindCyclicPrerequisite = "CyclicPrerequisite"
	KindNoFeasibleSchedule = "NoFeasibleSchedule"
	KindBadRequest         = "BadRequest"
	KindInternal           = "Internal"
)

// ErrorKind classifies an engine error into the caller-facing taxonomy.
func ErrorKind(err error) string {
	var mce *catalog.MalformedCatalogError
	if errors.As(err, &mce) {
		return KindMalformedCatalog
	}
	var cpe *prereq.CyclicPrerequisiteError
	if errors.As(err, &cpe) {
		return KindCyclicPrerequisite
	}
	var nfe *solver.NoFeasibleScheduleError
	if errors.As(err, &nfe) {
		return KindNoFeasibleSchedule
	}
	var bre *BadRequestError
	if errors.As(err, &bre) {
		return KindBadRequest
	}
	return KindInternal
}

// BadRequestError reports an invalid recommendation request.
type BadRequestError struct{ Reason string }

func (e *BadRequestError) Error() string { return "bad request: " + e.Reason }

// Key returns the deterministic cache/id key for a request: a hex sha256
// over its canonical JSON encoding. Identical requests share a key.
func (r *Request) Key() string {
	data, _ := json.Marshal(r)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
