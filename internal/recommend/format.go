package recommend

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ombra/registrar/internal/solver"
)

// scheduleNamespace scopes deterministic schedule ids; formatting the
// same solve result always yields the same ScheduleID.
var scheduleNamespace = uuid.MustParse("8a9d3f42-9c1b-4a6e-b1d4-5f0a9e7c2d11")

// Format turns a solve result into the caller-facing response.
// minCredits is the effective lower bound the solve ran under, which
// may come from the stored student record rather than the request.
// Pure: no side effects, and idempotent for the same inputs.
func Format(key string, res *solver.Result, req *Request, minCredits int) *Response {
	out := &Response{
		ScheduleID:   uuid.NewSHA1(scheduleNamespace, []byte(key)).String(),
		Courses:      make([]ScheduledCourse, 0, len(res.Picks)),
		TotalCredits: res.Credits,
		Score:        res.Score,
		Partial:      res.Partial,
		Notes:        []string{},
	}

	picks := make([]solver.Pick, len(res.Picks))
	copy(picks, res.Picks)
	sort.Slice(picks, func(i, j int) bool { return picks[i].Course.ID < picks[j].Course.ID })

	for _, p := range picks {
		out.Courses = append(out.Courses, ScheduledCourse{
			CourseID:     p.Course.ID,
			SectionID:    p.Section.ID,
			Title:        p.Course.Title,
			InstructorID: p.Section.InstructorID,
			TimeSlots:    p.Section.Meetings,
			Credits:      p.Course.Credits,
		})
	}

	out.Notes = append(out.Notes, preferenceNotes(picks, req)...)

	if res.Partial {
		out.Notes = append(out.Notes, "search budget exhausted; this is the best schedule found so far")
	}
	if res.Credits < minCredits {
		out.Notes = append(out.Notes, fmt.Sprintf("total credits %d below the requested minimum %d", res.Credits, minCredits))
	}
	return out
}

// preferenceNotes explains which soft preferences the schedule satisfies
// or misses, in a stable order.
func preferenceNotes(picks []solver.Pick, req *Request) []string {
	var notes []string
	prefs := req.Preferences

	if prefs.TimeOfDay != "" && prefs.TimeOfDayWeight > 0 && len(picks) > 0 {
		hit := 0
		for _, p := range picks {
			if solver.WindowFraction(p.Section.Meetings, prefs.TimeOfDay) >= 0.5 {
				hit++
			}
		}
		if hit == len(picks) {
			notes = append(notes, fmt.Sprintf("all courses meet mostly in the %s", prefs.TimeOfDay))
		} else {
			notes = append(notes, fmt.Sprintf("%d of %d courses meet mostly in the %s", hit, len(picks), prefs.TimeOfDay))
		}
	}

	if prefs.InstructorWeight > 0 && len(picks) > 0 {
		low := ""
		for _, p := range picks {
			if p.Section.InstructorRating > 0 && p.Section.InstructorRating < 3 {
				low = p.Course.ID
				break
			}
		}
		if low != "" {
			notes = append(notes, fmt.Sprintf("%s is taught by an instructor rated below 3.0", low))
		}
	}

	return notes
}
