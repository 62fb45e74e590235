package prereq

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
)

// CyclicPrerequisiteError reports a cycle in the prerequisite graph.
// A genuine cycle makes every course on it permanently unreachable,
// so it is rejected at build time.
type CyclicPrerequisiteError struct {
	Cycle []string // course ids along the cycle, first == last
}

func (e *CyclicPrerequisiteError) Error() string {
	return "cyclic prerequisite: " + strings.Join(e.Cycle, " -> ")
}

// Graph answers eligibility questions over a catalog's prerequisite
// structure. Immutable after Build; safe for concurrent use.
type Graph struct {
	index  *catalog.Index
	edges  map[string][]string // courseID -> prerequisite leaf ids, sorted
	logger *zap.Logger
}

// Build constructs the graph and rejects cyclic prerequisite structures.
func Build(index *catalog.Index, logger *zap.Logger) (*Graph, error) {
	g := &Graph{
		index:  index,
		edges:  make(map[string][]string, index.Len()),
		logger: logger,
	}

	for _, id := range index.CourseIDs() {
		c, _ := index.Lookup(id)
		leaves := c.Prereq.Leaves(nil)
		sort.Strings(leaves)
		g.edges[id] = dedup(leaves)
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CyclicPrerequisiteError{Cycle: cycle}
	}

	logger.Debug("prerequisite graph built", zap.Int("courses", index.Len()))
	return g, nil
}

// findCycle runs a three-color DFS over the prerequisite edges.
// Returns the first cycle found as a closed path, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.edges))
	parent := make(map[string]string)

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		for _, dep := range g.edges[id] {
			switch color[dep] {
			case white:
				parent[dep] = id
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			case gray:
				// Walk parents back from id to dep to recover the path.
				path := []string{dep}
				for cur := id; cur != dep; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, dep)
				// Reverse into dep -> ... -> dep order.
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range g.index.CourseIDs() {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// IsEligible reports whether the student can take the course based on
// completed (passed) courses alone. Corequisite concurrency is handled by
// EligibleWith during candidate construction.
func (g *Graph) IsEligible(rec *catalog.StudentRecord, courseID string) bool {
	return g.EligibleWith(rec, courseID, nil)
}

// EligibleWith evaluates eligibility allowing corequisite leaves to be
// satisfied by courses scheduled concurrently in the same candidate.
func (g *Graph) EligibleWith(rec *catalog.StudentRecord, courseID string, concurrent map[string]bool) bool {
	c, ok := g.index.Lookup(courseID)
	if !ok {
		return false
	}
	completed := rec.CompletedSet()
	coreq := make(map[string]bool, len(c.Coreqs))
	for _, id := range c.Coreqs {
		coreq[id] = true
	}
	return c.Prereq.Satisfied(func(id string) bool {
		if completed[id] {
			return true
		}
		return coreq[id] && concurrent[id]
	})
}

// EligibleCourses computes the student's eligible frontier: every offered
// course the student has not completed or started whose prerequisite
// formula is satisfiable this term. A corequisite leaf counts as
// satisfiable when the corequisite course has at least one section; the
// solver enforces actual concurrency.
func (g *Graph) EligibleCourses(rec *catalog.StudentRecord) []string {
	completed := rec.CompletedSet()
	inProgress := rec.InProgressSet()

	var out []string
	for _, id := range g.index.CourseIDs() {
		if completed[id] || inProgress[id] {
			continue
		}
		if len(g.index.SectionsFor(id)) == 0 {
			continue
		}
		c, _ := g.index.Lookup(id)
		coreq := make(map[string]bool, len(c.Coreqs))
		for _, cid := range c.Coreqs {
			coreq[cid] = true
		}
		ok := c.Prereq.Satisfied(func(leaf string) bool {
			if completed[leaf] {
				return true
			}
			return coreq[leaf] && len(g.index.SectionsFor(leaf)) > 0
		})
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// Prerequisites returns the direct prerequisite leaf ids of a course.
func (g *Graph) Prerequisites(courseID string) []string { return g.edges[courseID] }

// Describe returns a short human-readable eligibility explanation,
// used by the conversational layer.
func (g *Graph) Describe(rec *catalog.StudentRecord, courseID string) string {
	c, ok := g.index.Lookup(courseID)
	if !ok {
		return fmt.Sprintf("%s is not in the catalog", courseID)
	}
	if g.IsEligible(rec, courseID) {
		return fmt.Sprintf("%s: eligible", courseID)
	}
	return fmt.Sprintf("%s: requires %s", courseID, c.Prereq.String())
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	var prev string
	for i, s := range sorted {
		if i == 0 || s != prev {
			out = append(out, s)
		}
		prev = s
	}
	return out
}
