package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/dispatch"
	"github.com/ombra/registrar/internal/faq"
	"github.com/ombra/registrar/internal/prereq"
	"github.com/ombra/registrar/internal/recommend"
	"github.com/ombra/registrar/internal/solver"
)

type fakeStudents map[string]*catalog.StudentRecord

func (f fakeStudents) GetStudent(_ context.Context, id string) (*catalog.StudentRecord, error) {
	if rec, ok := f[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return &catalog.StudentRecord{StudentID: id}, nil
}

type fakeUnlocker map[string][]string

func (f fakeUnlocker) Unlocks(_ context.Context, courseID string) ([]string, error) {
	return f[courseID], nil
}

// newTestHandler wires a Handler against an in-memory catalog (no
// postgres/redis/neo4j).
func newTestHandler(t *testing.T, unlocker Unlocker) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	courses := []catalog.Course{
		{ID: "CS101", Title: "Intro to Programming", Department: "CS", Credits: 4},
		{ID: "CS201", Title: "Data Structures", Department: "CS", Credits: 4,
			Prereq: catalog.CourseLeaf("CS101")},
	}
	sections := []catalog.Section{
		{ID: "CS101-01", CourseID: "CS101", Capacity: 30, InstructorID: "lee",
			Meetings: []catalog.TimeSlot{{Day: time.Monday, Start: 9 * 60, End: 10 * 60}}},
		{ID: "CS201-01", CourseID: "CS201", Capacity: 30, InstructorID: "novak",
			Meetings: []catalog.TimeSlot{{Day: time.Tuesday, Start: 9 * 60, End: 10 * 60}}},
	}
	idx, err := catalog.Build(courses, sections)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	g, err := prereq.Build(idx, logger)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	students := fakeStudents{
		"s1": {StudentID: "s1", Requirements: []string{"CS101"}, MinCredits: 4, MaxCredits: 4},
	}
	svc := recommend.NewService(idx, g, solver.New(idx, g, logger), students, nil, nil, logger)
	d := dispatch.New(svc, faq.NewRetriever(nil, nil, nil, logger), logger)

	return NewHandler(svc, d, unlocker, logger).Router()
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/health")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestCreateRecommendation(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/recommendations", recommend.Request{
		StudentID:         "s2",
		MajorRequirements: []string{"CS101"},
		MinCredits:        4,
		MaxCredits:        4,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body recommend.Response
	decodeJSON(t, resp, &body)
	if len(body.Courses) != 1 || body.Courses[0].SectionID != "CS101-01" {
		t.Errorf("unexpected courses: %+v", body.Courses)
	}
	if body.TotalCredits != 4 {
		t.Errorf("got %d credits, want 4", body.TotalCredits)
	}
	if body.ScheduleID == "" {
		t.Error("missing schedule id")
	}
}

func TestCreateRecommendationValidation(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/recommendations", recommend.Request{})
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body recommend.ErrorResponse
	decodeJSON(t, resp, &body)
	if body.ErrorKind != recommend.KindBadRequest {
		t.Errorf("got kind %q, want %q", body.ErrorKind, recommend.KindBadRequest)
	}
}

func TestCreateRecommendationInfeasible(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	// CS201 requires CS101, which a fresh student has not passed.
	resp := postJSON(t, ts, "/api/recommendations", recommend.Request{
		StudentID:         "s3",
		MajorRequirements: []string{"CS201"},
		MinCredits:        4,
		MaxCredits:        4,
	})
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var body recommend.ErrorResponse
	decodeJSON(t, resp, &body)
	if body.ErrorKind != recommend.KindNoFeasibleSchedule {
		t.Errorf("got kind %q, want %q", body.ErrorKind, recommend.KindNoFeasibleSchedule)
	}
}

func TestListCourses(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/courses")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body []catalog.Course
	decodeJSON(t, resp, &body)
	if len(body) != 2 {
		t.Fatalf("got %d courses, want 2", len(body))
	}
	if body[0].ID != "CS101" {
		t.Errorf("expected sorted order, got %q first", body[0].ID)
	}
}

func TestGetCourse(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/courses/CS201")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Course        catalog.Course `json:"course"`
		Prerequisites []string       `json:"prerequisites"`
	}
	decodeJSON(t, resp, &body)
	if body.Course.Title != "Data Structures" {
		t.Errorf("got title %q", body.Course.Title)
	}
	if len(body.Prerequisites) != 1 || body.Prerequisites[0] != "CS101" {
		t.Errorf("got prerequisites %v, want [CS101]", body.Prerequisites)
	}

	resp = getJSON(t, ts, "/api/courses/NOPE")
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown course, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetCourseSections(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/courses/CS101/sections")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body []catalog.Section
	decodeJSON(t, resp, &body)
	if len(body) != 1 || body[0].ID != "CS101-01" {
		t.Errorf("unexpected sections: %+v", body)
	}
}

func TestGetCourseUnlocks(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, fakeUnlocker{"CS101": {"CS201"}}))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/courses/CS101/unlocks")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Unlocks []string `json:"unlocks"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Unlocks) != 1 || body.Unlocks[0] != "CS201" {
		t.Errorf("got unlocks %v, want [CS201]", body.Unlocks)
	}
}

func TestGetCourseUnlocksUnconfigured(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/courses/CS101/unlocks")
	if resp.StatusCode != 503 {
		t.Errorf("expected 503 without graph store, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetEligibleCourses(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/students/s1/eligible")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Eligible []string `json:"eligible"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Eligible) != 1 || body.Eligible[0] != "CS101" {
		t.Errorf("got eligible %v, want [CS101]", body.Eligible)
	}
}

func TestChat(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, nil))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/chat", chatRequest{
		StudentID: "s1", UserName: "Sam", Message: "/eligible",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["reply"] == "" {
		t.Error("expected non-empty reply")
	}
}
