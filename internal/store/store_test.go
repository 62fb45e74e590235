package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/recommend"
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("registrar_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed store test in -short mode")
	}
	ctx := context.Background()

	dsn, cleanup, err := startPostgres(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(cleanup)

	s, err := New(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestCatalogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	courses := []catalog.Course{
		{ID: "CS101", Title: "Intro to Programming", Department: "CS", Credits: 4},
		{ID: "CS201", Title: "Data Structures", Department: "CS", Credits: 4,
			Prereq: catalog.CourseLeaf("CS101")},
		{ID: "PHYS1L", Title: "Physics Lab", Department: "PHYS", Credits: 1,
			Coreqs: []string{"CS101"}},
	}
	for i := range courses {
		if err := s.SaveCourse(ctx, &courses[i]); err != nil {
			t.Fatalf("save course: %v", err)
		}
	}

	sec := catalog.Section{
		ID: "CS101-01", CourseID: "CS101", InstructorID: "lee",
		InstructorRating: 4.5, Capacity: 30, Enrolled: 12,
		Meetings: []catalog.TimeSlot{
			{Day: time.Monday, Start: 540, End: 630},
			{Day: time.Wednesday, Start: 540, End: 630},
		},
	}
	if err := s.SaveSection(ctx, &sec); err != nil {
		t.Fatalf("save section: %v", err)
	}

	gotCourses, gotSections, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(gotCourses) != 3 {
		t.Fatalf("got %d courses, want 3", len(gotCourses))
	}
	var cs201 *catalog.Course
	for i := range gotCourses {
		if gotCourses[i].ID == "CS201" {
			cs201 = &gotCourses[i]
		}
	}
	if cs201 == nil || cs201.Prereq == nil || cs201.Prereq.String() != "CS101" {
		t.Errorf("CS201 prereq lost in round trip: %+v", cs201)
	}

	if len(gotSections) != 1 {
		t.Fatalf("got %d sections, want 1", len(gotSections))
	}
	if len(gotSections[0].Meetings) != 2 {
		t.Errorf("got %d meetings, want 2", len(gotSections[0].Meetings))
	}

	// The snapshot must build into a valid index.
	if _, err := catalog.Build(gotCourses, gotSections); err != nil {
		t.Errorf("snapshot does not index: %v", err)
	}
}

func TestStudentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &catalog.StudentRecord{
		StudentID: "s1",
		Completed: []catalog.CompletedCourse{
			{CourseID: "CS101", Grade: "A", Passed: true},
			{CourseID: "MATH20", Grade: "F", Passed: false},
		},
		InProgress:   []string{"CS201"},
		Requirements: []string{"CS301", "CS350"},
		MinCredits:   12,
		MaxCredits:   18,
	}
	if err := s.SaveStudent(ctx, rec); err != nil {
		t.Fatalf("save student: %v", err)
	}

	got, err := s.GetStudent(ctx, "s1")
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if len(got.Completed) != 2 || len(got.InProgress) != 1 || len(got.Requirements) != 2 {
		t.Errorf("record shape wrong: %+v", got)
	}
	if got.MinCredits != 12 || got.MaxCredits != 18 {
		t.Errorf("credit bounds lost: %+v", got)
	}
	set := got.CompletedSet()
	if !set["CS101"] || set["MATH20"] {
		t.Errorf("completed set wrong: %v", set)
	}

	_, err = s.GetStudent(ctx, "nobody")
	if !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("got %v, want ErrStudentNotFound", err)
	}
}

func TestRecommendationAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resp := &recommend.Response{
		ScheduleID:   "sched-1",
		TotalCredits: 8,
		Score:        1.25,
		Notes:        []string{},
		Courses: []recommend.ScheduledCourse{
			{CourseID: "CS101", SectionID: "CS101-01", Credits: 4},
		},
	}
	if err := s.SaveRecommendation(ctx, "s1", resp); err != nil {
		t.Fatalf("save recommendation: %v", err)
	}

	got, err := s.RecentRecommendations(ctx, "s1", 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].ScheduleID != "sched-1" {
		t.Fatalf("audit round trip failed: %+v", got)
	}
	if got[0].TotalCredits != 8 || len(got[0].Courses) != 1 {
		t.Errorf("payload lost fields: %+v", got[0])
	}
}
