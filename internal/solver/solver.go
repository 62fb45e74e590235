// Package solver implements the schedule search: a depth-first
// branch-and-bound over (course, section) choices that satisfies every
// hard constraint and maximizes the weighted soft objective.
package solver

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/conflict"
	"github.com/ombra/registrar/internal/prereq"
)

// DefaultBudget bounds node visits when the caller supplies none.
const DefaultBudget = 200_000

// NoFeasibleScheduleError reports that the search tree was exhausted
// without a single complete candidate. CourseID names the constraint
// that blocked the search when one course is identifiable.
type NoFeasibleScheduleError struct {
	CourseID string
	Reason   string
}

func (e *NoFeasibleScheduleError) Error() string {
	if e.CourseID != "" {
		return fmt.Sprintf("no feasible schedule: %s: %s", e.CourseID, e.Reason)
	}
	return "no feasible schedule: " + e.Reason
}

// Input is one solve request, already reduced to the eligible frontier.
type Input struct {
	Eligible   []string // candidate course pool (eligible, not completed)
	Required   []string // subset of Eligible that must be scheduled
	MinCredits int
	MaxCredits int
	Prefs      Preferences
	Budget     int // node-visit budget; 0 means DefaultBudget
}

// Pick is one (course, section) choice in a candidate.
type Pick struct {
	Course  *catalog.Course
	Section *catalog.Section
}

// Result is the best schedule found.
type Result struct {
	Picks      []Pick
	Credits    int
	Score      float64
	DayBalance float64
	Partial    bool // budget or deadline hit before the tree was exhausted
	Nodes      int  // search nodes visited
}

// Solver searches one immutable catalog. Safe for concurrent solves;
// each Solve call owns its search state exclusively.
type Solver struct {
	index  *catalog.Index
	graph  *prereq.Graph
	logger *zap.Logger
}

// New creates a Solver over a built catalog and prerequisite graph.
func New(index *catalog.Index, graph *prereq.Graph, logger *zap.Logger) *Solver {
	return &Solver{index: index, graph: graph, logger: logger}
}

// course is the solver's per-course view, with sections pre-sorted by
// descending soft score (ties by section id, for reproducible output).
type course struct {
	meta     *catalog.Course
	sections []*catalog.Section
	required bool
	best     float64 // best single-section score, for the bound function
}

// Solve runs branch-and-bound and returns the best candidate. When the
// node budget (or ctx deadline) is exhausted first, the best incumbent
// found so far is returned with Partial set. If the tree is exhausted
// with zero complete candidates, a *NoFeasibleScheduleError is returned.
func (s *Solver) Solve(ctx context.Context, rec *catalog.StudentRecord, in Input) (*Result, error) {
	if in.Budget <= 0 {
		in.Budget = DefaultBudget
	}
	if in.MaxCredits <= 0 {
		in.MaxCredits = rec.MaxCredits
	}
	if in.MinCredits <= 0 {
		in.MinCredits = rec.MinCredits
	}

	courses, err := s.orderCourses(in)
	if err != nil {
		return nil, err
	}

	st := &state{
		solver:    s,
		ctx:       ctx,
		rec:       rec,
		in:        in,
		courses:   courses,
		chosenSet: make(map[string]bool),
		undecided: make(map[string]bool, len(courses)),
	}
	for _, c := range courses {
		st.undecided[c.meta.ID] = true
	}

	st.descend(0)

	s.logger.Debug("solve finished",
		zap.Int("nodes", st.nodes),
		zap.Bool("exhausted", st.stopped),
		zap.Bool("found", st.incumbent != nil))

	if st.incumbent != nil {
		return &Result{
			Picks:      st.incumbent,
			Credits:    st.incumbentCredits,
			Score:      st.incumbentScore,
			DayBalance: dayBalance(st.incumbent),
			Partial:    st.stopped,
			Nodes:      st.nodes,
		}, nil
	}
	if st.stopped && st.bestPartial != nil {
		return &Result{
			Picks:      st.bestPartial,
			Credits:    st.bestPartialCredits,
			Score:      st.bestPartialScore,
			DayBalance: dayBalance(st.bestPartial),
			Partial:    true,
			Nodes:      st.nodes,
		}, nil
	}
	if st.stopped {
		return nil, &NoFeasibleScheduleError{Reason: "search budget exhausted before any candidate was found"}
	}
	if st.blocked != "" {
		return nil, &NoFeasibleScheduleError{CourseID: st.blocked, Reason: st.blockedReason}
	}
	return nil, &NoFeasibleScheduleError{Reason: "no combination satisfies the credit bounds"}
}

// orderCourses builds the fixed decision order: required courses first by
// id, then electives by descending best-section score, ties by id.
func (s *Solver) orderCourses(in Input) ([]course, error) {
	required := make(map[string]bool, len(in.Required))
	for _, id := range in.Required {
		required[id] = true
	}

	var out []course
	for _, id := range in.Eligible {
		meta, ok := s.index.Lookup(id)
		if !ok {
			return nil, &NoFeasibleScheduleError{CourseID: id, Reason: "not in catalog"}
		}
		all := s.index.SectionsFor(id)
		open := make([]*catalog.Section, 0, len(all))
		for _, sec := range all {
			if conflict.HasCapacity(sec) {
				open = append(open, sec)
			}
		}
		if required[id] && len(open) == 0 {
			return nil, &NoFeasibleScheduleError{CourseID: id, Reason: "required course has no section with open seats"}
		}
		if len(open) == 0 {
			continue // elective with no open section drops out of the pool
		}

		c := course{meta: meta, sections: open, required: required[id]}
		sort.SliceStable(c.sections, func(i, j int) bool {
			si := sectionScore(c.sections[i], in.Prefs)
			sj := sectionScore(c.sections[j], in.Prefs)
			if si != sj {
				return si > sj
			}
			return c.sections[i].ID < c.sections[j].ID
		})
		c.best = sectionScore(c.sections[0], in.Prefs)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].required != out[j].required {
			return out[i].required
		}
		if out[i].required {
			return out[i].meta.ID < out[j].meta.ID
		}
		if out[i].best != out[j].best {
			return out[i].best > out[j].best
		}
		return out[i].meta.ID < out[j].meta.ID
	})
	return out, nil
}

// state is the mutable search state of a single Solve call.
type state struct {
	solver  *Solver
	ctx     context.Context
	rec     *catalog.StudentRecord
	in      Input
	courses []course

	chosen    []Pick
	chosenSet map[string]bool
	undecided map[string]bool
	credits   int
	score     float64

	nodes   int
	stopped bool // budget or deadline hit

	incumbent        []Pick
	incumbentScore   float64
	incumbentCredits int

	bestPartial        []Pick
	bestPartialScore   float64
	bestPartialCredits int

	blocked       string
	blockedReason string
}

// descend decides the course at depth and recurses. Every successful
// placement counts as one node visit against the budget.
func (st *state) descend(depth int) {
	if st.stopped {
		return
	}
	if st.nodes >= st.in.Budget || st.ctx.Err() != nil {
		st.stopped = true
		return
	}

	if depth == len(st.courses) {
		st.acceptLeaf()
		return
	}

	c := &st.courses[depth]

	// Bound: even the best completion of this branch cannot beat the
	// incumbent, so prune it.
	if st.incumbent != nil {
		optimistic := st.score + st.in.Prefs.DayBalanceWeight
		for i := depth; i < len(st.courses); i++ {
			optimistic += st.courses[i].best
		}
		if optimistic <= st.incumbentScore {
			return
		}
	}

	delete(st.undecided, c.meta.ID)
	defer func() { st.undecided[c.meta.ID] = true }()

	placed := false
	for _, sec := range c.sections {
		if st.stopped {
			break
		}
		if st.credits+c.meta.Credits > st.in.MaxCredits {
			break // sections share the course's credits; none can fit
		}
		if conflict.HasTimeConflict(sectionsOf(st.chosen), sec) {
			continue
		}
		// Corequisite leaves may still be satisfied by a course that is
		// chosen or yet to be decided; the leaf check is strict.
		if !st.solver.graph.EligibleWith(st.rec, c.meta.ID, union(st.chosenSet, st.undecided)) {
			continue
		}

		st.place(c, sec)
		placed = true
		st.descend(depth + 1)
		st.unplace(c)
	}

	if c.required {
		if !placed && st.blocked == "" {
			st.blocked = c.meta.ID
			st.blockedReason = "no conflict-free section within credit bounds"
		}
		return // required courses have no skip branch
	}
	st.descend(depth + 1)
}

func (st *state) place(c *course, sec *catalog.Section) {
	st.chosen = append(st.chosen, Pick{Course: c.meta, Section: sec})
	st.chosenSet[c.meta.ID] = true
	st.credits += c.meta.Credits
	st.score += sectionScore(sec, st.in.Prefs)
	st.nodes++
	st.snapshotPartial()
}

func (st *state) unplace(c *course) {
	last := st.chosen[len(st.chosen)-1]
	st.chosen = st.chosen[:len(st.chosen)-1]
	delete(st.chosenSet, c.meta.ID)
	st.credits -= c.meta.Credits
	st.score -= sectionScore(last.Section, st.in.Prefs)
}

// acceptLeaf records a complete candidate as the incumbent when it beats
// the current one. Strict improvement keeps the lexically-first candidate
// among score ties, since exploration order is deterministic.
func (st *state) acceptLeaf() {
	if len(st.chosen) == 0 || st.credits < st.in.MinCredits {
		return
	}
	// Strict corequisite check: concurrency must come from courses
	// actually in the candidate.
	for _, p := range st.chosen {
		if !st.solver.graph.EligibleWith(st.rec, p.Course.ID, st.chosenSet) {
			return
		}
	}
	total := st.score + st.in.Prefs.DayBalanceWeight*dayBalance(st.chosen)
	if st.incumbent != nil && total <= st.incumbentScore {
		return
	}
	st.incumbent = copyPicks(st.chosen)
	st.incumbentScore = total
	st.incumbentCredits = st.credits
}

// snapshotPartial keeps the best constraint-valid prefix seen, returned
// only when the budget runs out before any complete candidate exists.
func (st *state) snapshotPartial() {
	if st.incumbent != nil {
		return
	}
	for _, p := range st.chosen {
		if !st.solver.graph.EligibleWith(st.rec, p.Course.ID, st.chosenSet) {
			return // a coreq is still pending; prefix not valid standalone
		}
	}
	score := st.score + st.in.Prefs.DayBalanceWeight*dayBalance(st.chosen)
	if st.bestPartial != nil && score <= st.bestPartialScore {
		return
	}
	st.bestPartial = copyPicks(st.chosen)
	st.bestPartialScore = score
	st.bestPartialCredits = st.credits
}

func sectionsOf(picks []Pick) []*catalog.Section {
	out := make([]*catalog.Section, len(picks))
	for i, p := range picks {
		out[i] = p.Section
	}
	return out
}

func copyPicks(picks []Pick) []Pick {
	out := make([]Pick, len(picks))
	copy(out, picks)
	return out
}

func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}
