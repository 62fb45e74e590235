package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
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

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	courses := []catalog.Course{
		{ID: "CS101", Title: "Intro to Programming", Credits: 4},
	}
	sections := []catalog.Section{
		{ID: "CS101-01", CourseID: "CS101", Capacity: 30, InstructorID: "lee",
			Meetings: []catalog.TimeSlot{{Day: time.Monday, Start: 9 * 60, End: 10 * 60}}},
	}
	idx, err := catalog.Build(courses, sections)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	g, err := prereq.Build(idx, zap.NewNop())
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	sv := solver.New(idx, g, zap.NewNop())
	students := fakeStudents{
		"s1": {StudentID: "s1", Requirements: []string{"CS101"}, MinCredits: 4, MaxCredits: 4},
	}
	svc := recommend.NewService(idx, g, sv, students, nil, nil, zap.NewNop())

	entries := []faq.Entry{
		{Question: "How do I drop a course?", Answer: "Use the registration portal before the deadline."},
	}
	retriever := faq.NewRetriever(entries, nil, nil, zap.NewNop())

	return New(svc, retriever, zap.NewNop())
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Intent{
		Name:        "ping",
		Description: "Ping test",
		Usage:       "/ping",
		Handler: func(ctx context.Context, args string, hc *HandlerContext) (*Result, error) {
			return &Result{Content: "pong: " + args}, nil
		},
	})

	ctx := context.Background()
	hc := &HandlerContext{Platform: "test"}

	result, err := reg.Dispatch(ctx, "/ping hello", hc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "pong: hello" {
		t.Errorf("got %q, want %q", result.Content, "pong: hello")
	}

	result, err = reg.Dispatch(ctx, "/unknown", hc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content == "" {
		t.Error("expected error message for unknown command")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Intent{Name: "beta"})
	reg.Register(&Intent{Name: "alpha"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("got %d intents, want 2", len(list))
	}
	if list[0].Name != "alpha" {
		t.Errorf("got %q first, want %q", list[0].Name, "alpha")
	}
}

func TestHandleRecommendCommand(t *testing.T) {
	d := newDispatcher(t)
	hc := &HandlerContext{Platform: "test", UserID: "s1", UserName: "Sam"}

	reply := d.Handle(context.Background(), "/recommend", hc)
	if !strings.Contains(reply, "CS101-01") {
		t.Errorf("reply missing section: %q", reply)
	}
	if !strings.Contains(reply, "Total: 4 credits") {
		t.Errorf("reply missing credit total: %q", reply)
	}
}

func TestHandleRecommendNaturalLanguage(t *testing.T) {
	d := newDispatcher(t)
	hc := &HandlerContext{Platform: "test", UserID: "s1"}

	reply := d.Handle(context.Background(), "can you recommend a schedule for next term?", hc)
	if !strings.Contains(reply, "CS101") {
		t.Errorf("reply missing course: %q", reply)
	}
}

func TestHandleRecommendWithoutUser(t *testing.T) {
	d := newDispatcher(t)
	reply := d.Handle(context.Background(), "/recommend", &HandlerContext{Platform: "test"})
	if !strings.Contains(reply, "sign in") {
		t.Errorf("expected sign-in prompt, got %q", reply)
	}
}

func TestHandleEligible(t *testing.T) {
	d := newDispatcher(t)
	hc := &HandlerContext{Platform: "test", UserID: "s1"}

	reply := d.Handle(context.Background(), "/eligible", hc)
	if !strings.Contains(reply, "CS101") {
		t.Errorf("reply missing eligible course: %q", reply)
	}
}

func TestHandleFAQFallback(t *testing.T) {
	d := newDispatcher(t)
	hc := &HandlerContext{Platform: "test", UserID: "s1"}

	reply := d.Handle(context.Background(), "how do I drop a course?", hc)
	if !strings.Contains(reply, "registration portal") {
		t.Errorf("expected FAQ answer, got %q", reply)
	}
}

func TestHandleGreeting(t *testing.T) {
	d := newDispatcher(t)
	hc := &HandlerContext{Platform: "test", UserID: "s1", UserName: "Sam"}

	reply := d.Handle(context.Background(), "hello", hc)
	if !strings.Contains(reply, "Sam") {
		t.Errorf("expected greeting with name, got %q", reply)
	}
}

func TestHandleHelpListsIntents(t *testing.T) {
	d := newDispatcher(t)
	reply := d.Handle(context.Background(), "/help", &HandlerContext{Platform: "test"})
	for _, want := range []string{"/recommend", "/eligible", "/faq", "/help"} {
		if !strings.Contains(reply, want) {
			t.Errorf("help output missing %q: %q", want, reply)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want intentKind
	}{
		{"recommend me a schedule", intentRecommend},
		{"what should i take next term", intentRecommend},
		{"am i eligible for CS301?", intentEligible},
		{"can i take algorithms?", intentEligible},
		{"hello!", intentGreeting},
		{"when is the add/drop deadline?", intentFAQ},
	}
	for _, tt := range tests {
		if got := classify(tt.text); got != tt.want {
			t.Errorf("classify(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
