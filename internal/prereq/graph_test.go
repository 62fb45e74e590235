package prereq

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
)

func mustIndex(t *testing.T, courses []catalog.Course, sections []catalog.Section) *catalog.Index {
	t.Helper()
	idx, err := catalog.Build(courses, sections)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func sectionFor(course string) catalog.Section {
	return catalog.Section{
		ID: course + "-01", CourseID: course, Capacity: 30,
		Meetings: []catalog.TimeSlot{{Day: time.Monday, Start: 540, End: 630}},
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	idx := mustIndex(t,
		[]catalog.Course{
			{ID: "A", Credits: 3, Prereq: catalog.CourseLeaf("B")},
			{ID: "B", Credits: 3, Prereq: catalog.CourseLeaf("A")},
		}, nil)

	_, err := Build(idx, zap.NewNop())
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var ce *CyclicPrerequisiteError
	if !errors.As(err, &ce) {
		t.Fatalf("got %T, want *CyclicPrerequisiteError", err)
	}
	if len(ce.Cycle) < 3 {
		t.Errorf("cycle path too short: %v", ce.Cycle)
	}
	if ce.Cycle[0] != ce.Cycle[len(ce.Cycle)-1] {
		t.Errorf("cycle path not closed: %v", ce.Cycle)
	}
}

func TestBuildAcceptsDAG(t *testing.T) {
	idx := mustIndex(t,
		[]catalog.Course{
			{ID: "CS101", Credits: 4},
			{ID: "CS201", Credits: 4, Prereq: catalog.CourseLeaf("CS101")},
			{ID: "CS301", Credits: 4, Prereq: catalog.All(catalog.CourseLeaf("CS201"), catalog.CourseLeaf("CS101"))},
		}, nil)

	if _, err := Build(idx, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsEligible(t *testing.T) {
	idx := mustIndex(t,
		[]catalog.Course{
			{ID: "CS101", Credits: 4},
			{ID: "CS201", Credits: 4, Prereq: catalog.CourseLeaf("CS101")},
		},
		[]catalog.Section{sectionFor("CS101"), sectionFor("CS201")})
	g, err := Build(idx, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	fresh := &catalog.StudentRecord{StudentID: "s1"}
	if !g.IsEligible(fresh, "CS101") {
		t.Error("CS101 has no prereq, should be eligible")
	}
	if g.IsEligible(fresh, "CS201") {
		t.Error("CS201 requires CS101")
	}

	done := &catalog.StudentRecord{
		StudentID: "s2",
		Completed: []catalog.CompletedCourse{{CourseID: "CS101", Passed: true}},
	}
	if !g.IsEligible(done, "CS201") {
		t.Error("CS201 should be eligible after CS101")
	}

	// A failed attempt does not satisfy the prerequisite.
	failed := &catalog.StudentRecord{
		StudentID: "s3",
		Completed: []catalog.CompletedCourse{{CourseID: "CS101", Passed: false}},
	}
	if g.IsEligible(failed, "CS201") {
		t.Error("failed CS101 must not satisfy CS201 prereq")
	}
}

func TestEligibleWithCorequisite(t *testing.T) {
	// PHYS1L requires PHYS1 but allows taking it concurrently.
	idx := mustIndex(t,
		[]catalog.Course{
			{ID: "PHYS1", Credits: 4},
			{ID: "PHYS1L", Credits: 1, Prereq: catalog.CourseLeaf("PHYS1"), Coreqs: []string{"PHYS1"}},
		},
		[]catalog.Section{sectionFor("PHYS1"), sectionFor("PHYS1L")})
	g, err := Build(idx, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rec := &catalog.StudentRecord{StudentID: "s1"}
	if g.IsEligible(rec, "PHYS1L") {
		t.Error("PHYS1L alone should not be eligible")
	}
	if !g.EligibleWith(rec, "PHYS1L", map[string]bool{"PHYS1": true}) {
		t.Error("PHYS1L should be eligible concurrently with PHYS1")
	}
}

func TestEligibleCoursesFrontier(t *testing.T) {
	idx := mustIndex(t,
		[]catalog.Course{
			{ID: "CS101", Credits: 4},
			{ID: "CS201", Credits: 4, Prereq: catalog.CourseLeaf("CS101")},
			{ID: "CS301", Credits: 4, Prereq: catalog.CourseLeaf("CS201")},
			{ID: "MATH20", Credits: 4},
		},
		[]catalog.Section{
			sectionFor("CS101"), sectionFor("CS201"),
			sectionFor("CS301"), sectionFor("MATH20"),
		})
	g, err := Build(idx, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rec := &catalog.StudentRecord{
		StudentID:  "s1",
		Completed:  []catalog.CompletedCourse{{CourseID: "CS101", Passed: true}},
		InProgress: []string{"MATH20"},
	}
	got := g.EligibleCourses(rec)
	want := []string{"CS201"}
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("frontier: got %v, want %v", got, want)
	}

	// Completing CS201 moves CS301 into the frontier.
	rec.Completed = append(rec.Completed, catalog.CompletedCourse{CourseID: "CS201", Passed: true})
	got = g.EligibleCourses(rec)
	if len(got) != 1 || got[0] != "CS301" {
		t.Errorf("frontier after CS201: got %v, want [CS301]", got)
	}
}

func TestFrontierSkipsUnofferedCourses(t *testing.T) {
	idx := mustIndex(t,
		[]catalog.Course{{ID: "CS101", Credits: 4}, {ID: "CS110", Credits: 4}},
		[]catalog.Section{sectionFor("CS101")}) // CS110 has no sections this term
	g, err := Build(idx, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got := g.EligibleCourses(&catalog.StudentRecord{StudentID: "s1"})
	if len(got) != 1 || got[0] != "CS101" {
		t.Errorf("got %v, want [CS101]", got)
	}
}
