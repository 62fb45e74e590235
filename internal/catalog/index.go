package catalog

import (
	"fmt"
	"sort"
)

// MalformedCatalogError reports raw catalog data that cannot be indexed:
// a section referencing a missing course, a prerequisite or corequisite
// naming an unknown course id, or structurally invalid data.
type MalformedCatalogError struct {
	CourseID  string
	SectionID string
	Ref       string // the dangling reference, when applicable
	Reason    string
}

func (e *MalformedCatalogError) Error() string {
	switch {
	case e.SectionID != "":
		return fmt.Sprintf("malformed catalog: section %s: %s", e.SectionID, e.Reason)
	case e.CourseID != "":
		return fmt.Sprintf("malformed catalog: course %s: %s", e.CourseID, e.Reason)
	default:
		return "malformed catalog: " + e.Reason
	}
}

// Index is the immutable, queryable view of one term's catalog.
// Build it once and share it by reference across concurrent solves.
type Index struct {
	courses  map[string]*Course
	sections map[string][]*Section // courseID -> sections, sorted by id
	ids      []string              // sorted course ids
}

// Build validates raw course and section data and returns an Index.
// Sections must reference existing courses; prerequisite and corequisite
// references must resolve to known course ids.
func Build(courses []Course, sections []Section) (*Index, error) {
	idx := &Index{
		courses:  make(map[string]*Course, len(courses)),
		sections: make(map[string][]*Section),
	}

	for i := range courses {
		c := courses[i]
		if c.ID == "" {
			return nil, &MalformedCatalogError{Reason: "course with empty id"}
		}
		if _, dup := idx.courses[c.ID]; dup {
			return nil, &MalformedCatalogError{CourseID: c.ID, Reason: "duplicate course id"}
		}
		if c.Credits <= 0 {
			return nil, &MalformedCatalogError{CourseID: c.ID, Reason: fmt.Sprintf("non-positive credits %d", c.Credits)}
		}
		if err := c.Prereq.validate(); err != nil {
			return nil, &MalformedCatalogError{CourseID: c.ID, Reason: "invalid prerequisite expression: " + err.Error()}
		}
		idx.courses[c.ID] = &courses[i]
		idx.ids = append(idx.ids, c.ID)
	}
	sort.Strings(idx.ids)

	// Prerequisite and corequisite references must resolve.
	for _, id := range idx.ids {
		c := idx.courses[id]
		for _, ref := range c.Prereq.Leaves(nil) {
			if _, ok := idx.courses[ref]; !ok {
				return nil, &MalformedCatalogError{
					CourseID: id, Ref: ref,
					Reason: fmt.Sprintf("prerequisite references unknown course %s", ref),
				}
			}
		}
		for _, ref := range c.Coreqs {
			if _, ok := idx.courses[ref]; !ok {
				return nil, &MalformedCatalogError{
					CourseID: id, Ref: ref,
					Reason: fmt.Sprintf("corequisite references unknown course %s", ref),
				}
			}
		}
	}

	seen := make(map[string]bool, len(sections))
	for i := range sections {
		s := sections[i]
		if s.ID == "" {
			return nil, &MalformedCatalogError{Reason: "section with empty id"}
		}
		if seen[s.ID] {
			return nil, &MalformedCatalogError{SectionID: s.ID, Reason: "duplicate section id"}
		}
		seen[s.ID] = true
		if _, ok := idx.courses[s.CourseID]; !ok {
			return nil, &MalformedCatalogError{
				SectionID: s.ID, Ref: s.CourseID,
				Reason: fmt.Sprintf("references unknown course %s", s.CourseID),
			}
		}
		if s.Capacity < 0 {
			return nil, &MalformedCatalogError{SectionID: s.ID, Reason: fmt.Sprintf("negative capacity %d", s.Capacity)}
		}
		for _, m := range s.Meetings {
			if m.Start < 0 || m.End > 24*60 || m.Start >= m.End {
				return nil, &MalformedCatalogError{
					SectionID: s.ID,
					Reason:    fmt.Sprintf("invalid meeting window %d-%d", m.Start, m.End),
				}
			}
		}
		idx.sections[s.CourseID] = append(idx.sections[s.CourseID], &sections[i])
	}
	for _, secs := range idx.sections {
		sort.Slice(secs, func(i, j int) bool { return secs[i].ID < secs[j].ID })
	}

	return idx, nil
}

// Lookup returns the course for id, or false when absent.
func (x *Index) Lookup(id string) (*Course, bool) {
	c, ok := x.courses[id]
	return c, ok
}

// SectionsFor returns the sections offered for a course, sorted by section id.
// The returned slice must not be mutated.
func (x *Index) SectionsFor(courseID string) []*Section {
	return x.sections[courseID]
}

// CourseIDs returns all course ids in lexical order.
func (x *Index) CourseIDs() []string { return x.ids }

// Len returns the number of courses in the index.
func (x *Index) Len() int { return len(x.ids) }
