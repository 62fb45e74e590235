package recommend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/prereq"
	"github.com/ombra/registrar/internal/solver"
)

// ErrStudentNotFound reports that a student id has no stored record.
// Sources return it (possibly wrapped) for unknown students; the service
// treats it as an empty record, so a request that carries its own
// transcript works for students that were never seeded.
var ErrStudentNotFound = errors.New("student not found")

// StudentSource loads stored student records. The postgres store
// implements it; tests supply a map-backed fake.
type StudentSource interface {
	GetStudent(ctx context.Context, studentID string) (*catalog.StudentRecord, error)
}

// Cache holds formatted responses keyed by request hash. Optional.
type Cache interface {
	GetRecommendation(ctx context.Context, key string) (*Response, bool, error)
	SetRecommendation(ctx context.Context, key string, resp *Response) error
}

// Auditor records issued recommendations. Optional.
type Auditor interface {
	SaveRecommendation(ctx context.Context, studentID string, resp *Response) error
}

// Service runs recommendation requests against one immutable catalog
// snapshot. Safe for concurrent use.
type Service struct {
	index    *catalog.Index
	graph    *prereq.Graph
	solver   *solver.Solver
	students StudentSource
	cache    Cache
	audit    Auditor
	logger   *zap.Logger

	defaultBudget int
	maxBudget     int
}

// NewService wires the engine. students, cache and audit may be nil.
func NewService(index *catalog.Index, graph *prereq.Graph, sv *solver.Solver,
	students StudentSource, cache Cache, audit Auditor, logger *zap.Logger) *Service {
	return &Service{
		index:    index,
		graph:    graph,
		solver:   sv,
		students: students,
		cache:    cache,
		audit:    audit,
		logger:   logger,
	}
}

// SetBudgets overrides the search-budget policy: requests without an
// explicit budget get def, and no request may exceed max. Zero leaves
// the solver defaults in place.
func (s *Service) SetBudgets(def, max int) {
	s.defaultBudget = def
	s.maxBudget = max
}

// budgetFor applies the configured policy to a requested budget.
func (s *Service) budgetFor(requested int) int {
	budget := requested
	if budget <= 0 {
		budget = s.defaultBudget
	}
	if s.maxBudget > 0 && budget > s.maxBudget {
		budget = s.maxBudget
	}
	return budget
}

// Recommend runs one request end to end. The catalog and student record
// are read snapshots; nothing is reserved or mutated. Failures carry the
// engine's typed errors, classified by ErrorKind.
func (s *Service) Recommend(ctx context.Context, req *Request) (*Response, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := req.Key()
	if s.cache != nil {
		if cached, ok, err := s.cache.GetRecommendation(ctx, key); err != nil {
			s.logger.Warn("recommendation cache read failed", zap.Error(err))
		} else if ok {
			s.logger.Debug("recommendation served from cache", zap.String("student", req.StudentID))
			return cached, nil
		}
	}

	rec, err := s.resolveRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	eligible := s.graph.EligibleCourses(rec)
	required := intersect(rec.Requirements, eligible)

	res, err := s.solver.Solve(ctx, rec, solver.Input{
		Eligible:   eligible,
		Required:   required,
		MinCredits: rec.MinCredits,
		MaxCredits: rec.MaxCredits,
		Prefs:      req.Preferences,
		Budget:     s.budgetFor(req.SearchBudget),
	})
	if err != nil {
		return nil, err
	}

	resp := Format(key, res, req, rec.MinCredits)
	s.logger.Info("recommendation produced",
		zap.String("student", req.StudentID),
		zap.Int("courses", len(resp.Courses)),
		zap.Int("credits", resp.TotalCredits),
		zap.Bool("partial", resp.Partial),
		zap.Int("nodes", res.Nodes))

	if s.cache != nil {
		if err := s.cache.SetRecommendation(ctx, key, resp); err != nil {
			s.logger.Warn("recommendation cache write failed", zap.Error(err))
		}
	}
	if s.audit != nil {
		if err := s.audit.SaveRecommendation(ctx, req.StudentID, resp); err != nil {
			s.logger.Warn("recommendation audit write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// Eligible returns the student's current eligible frontier, used by the
// conversational layer to answer "what can I take".
func (s *Service) Eligible(ctx context.Context, studentID string) ([]string, error) {
	rec, err := s.resolveRecord(ctx, &Request{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	return s.graph.EligibleCourses(rec), nil
}

// Catalog exposes the read-only catalog snapshot the service solves over.
func (s *Service) Catalog() *catalog.Index { return s.index }

// Graph exposes the prerequisite graph for advisory queries.
func (s *Service) Graph() *prereq.Graph { return s.graph }

func (s *Service) validate(req *Request) error {
	if req.StudentID == "" {
		return &BadRequestError{Reason: "studentId is required"}
	}
	if req.MinCredits < 0 || req.MaxCredits < 0 {
		return &BadRequestError{Reason: "credit bounds must be non-negative"}
	}
	if req.MaxCredits > 0 && req.MinCredits > req.MaxCredits {
		return &BadRequestError{Reason: fmt.Sprintf("minCredits %d exceeds maxCredits %d", req.MinCredits, req.MaxCredits)}
	}
	if req.SearchBudget < 0 {
		return &BadRequestError{Reason: "searchBudget must be non-negative"}
	}
	return nil
}

/// resolveRecord builds the student record: request transcript fields take
// precedence, anything missing is loaded from the student source.
func (s *Service) resolveRecord(ctx context.Context, req *Request) (*catalog.StudentRecord, error) {
	var rec *catalog.StudentRecord
	if s.students != nil {
		stored, err := s.students.GetStudent(ctx, req.StudentID)
		switch {
		case errors.Is(err, ErrStudentNotFound):
			// Never-seeded student; the request transcript is all there is.
		case err != nil:
			return nil, fmt.Errorf("load student %s: %w", req.StudentID, err)
		default:
			rec = stored
		}
	}
	if rec == nil {
		rec = &catalog.StudentRecord{StudentID: req.StudentID}
	}

	if req.CompletedCourses != nil {
		rec.Completed = rec.Completed[:0]
		for _, id := range req.CompletedCourses {
			rec.Completed = append(rec.Completed, catalog.CompletedCourse{CourseID: id, Passed: true})
		}
	}
	if req.InProgressCourses != nil {
		rec.InProgress = req.InProgressCourses
	}
	if req.MajorRequirements != nil {
		rec.Requirements = req.MajorRequirements
	}
	if req.MinCredits > 0 {
		rec.MinCredits = req.MinCredits
	}
	if req.MaxCredits > 0 {
		rec.MaxCredits = req.MaxCredits
	}
	if rec.MaxCredits <= 0 {
		rec.MaxCredits = 18 // registrar default full-time ceiling
	}
	return rec, nil
}

// intersect keeps the requirement ids present in the eligible frontier,
// preserving frontier order (lexical).
func intersect(requirements, eligible []string) []string {
	want := make(map[string]bool, len(requirements))
	for _, id := range requirements {
		want[id] = true
	}
	var out []string
	for _, id := range eligible {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}
