// Package conflict provides the pure predicates the solver applies at
// every search-tree expansion: meeting-time overlap and seat capacity.
package conflict

import "github.com/ombra/registrar/internal/catalog"

// HasTimeConflict reports whether any meeting of next collides with any
// meeting of an already-chosen section.
func HasTimeConflict(chosen []*catalog.Section, next *catalog.Section) bool {
	for _, sec := range chosen {
		for _, a := range sec.Meetings {
			for _, b := range next.Meetings {
				if a.Overlaps(b) {
					return true
				}
			}
		}
	}
	return false
}

// HasCapacity reports whether the section had an open seat at snapshot
// time. Enrollment counts are a read snapshot, not a live reservation.
func HasCapacity(sec *catalog.Section) bool { return sec.HasSeats() }
