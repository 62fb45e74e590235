package solver

import (
	"github.com/ombra/registrar/internal/catalog"
)

// Preferences holds the soft-objective weights for a solve. Weights are
// non-negative multipliers; a zero weight disables the preference.
type Preferences struct {
	// TimeOfDay names the preferred meeting window:
	// "morning" (before 12:00), "afternoon" (12:00-17:00),
	// "evening" (after 17:00), or "" for no preference.
	TimeOfDay        string  `json:"timeOfDay,omitempty"`
	TimeOfDayWeight  float64 `json:"timeOfDayWeight"`
	InstructorWeight float64 `json:"instructorRating"`
	DayBalanceWeight float64 `json:"dayBalance"`
}

const maxInstructorRating = 5.0

// sectionScore computes the per-section soft score in [0, TimeOfDayWeight
// + InstructorWeight]. Day balance is a whole-candidate property and is
// scored separately at the leaves.
func sectionScore(sec *catalog.Section, prefs Preferences) float64 {
	score := prefs.InstructorWeight * clamp01(sec.InstructorRating/maxInstructorRating)
	if prefs.TimeOfDay != "" && prefs.TimeOfDayWeight > 0 {
		score += prefs.TimeOfDayWeight * WindowFraction(sec.Meetings, prefs.TimeOfDay)
	}
	return score
}

// WindowFraction returns the fraction of meeting minutes falling inside
// the named window ("morning", "afternoon", "evening").
func WindowFraction(meetings []catalog.TimeSlot, window string) float64 {
	lo, hi, ok := windowBounds(window)
	if !ok {
		return 0
	}
	total, inside := 0, 0
	for _, m := range meetings {
		total += m.Minutes()
		s, e := m.Start, m.End
		if s < lo {
			s = lo
		}
		if e > hi {
			e = hi
		}
		if e > s {
			inside += e - s
		}
	}
	if total == 0 {
		return 0
	}
	return float64(inside) / float64(total)
}

func windowBounds(window string) (lo, hi int, ok bool) {
	switch window {
	case "morning":
		return 0, 12 * 60, true
	case "afternoon":
		return 12 * 60, 17 * 60, true
	case "evening":
		return 17 * 60, 24 * 60, true
	}
	return 0, 0, false
}

// dayBalance scores how evenly a candidate's meeting minutes spread
// across the week, from 0 (all on one day) to 1 (even across five days).
// Uses a normalized Herfindahl concentration over per-day minutes.
func dayBalance(picks []Pick) float64 {
	perDay := make(map[int]int)
	total := 0
	for _, p := range picks {
		for _, m := range p.Section.Meetings {
			perDay[int(m.Day)] += m.Minutes()
			total += m.Minutes()
		}
	}
	if total == 0 || len(perDay) == 0 {
		return 0
	}
	var h float64
	for _, mins := range perDay {
		share := float64(mins) / float64(total)
		h += share * share
	}
	const days = 5.0
	balance := (1 - h) / (1 - 1/days)
	return clamp01(balance)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
