// Package graphstore mirrors the prerequisite graph into Neo4j so that
// advisors can run transitive queries (what does this course unlock,
// what chains lead to it) that the in-memory engine does not need.
package graphstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
)

// Store handles Neo4j operations for the course graph.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New creates a Neo4j-backed graph store.
func New(uri, user, password string, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Store{driver: driver, logger: logger}, nil
}

// Close shuts down the Neo4j driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Sync replaces the mirrored graph with the current catalog: one Course
// node per course and a REQUIRES edge for every prerequisite reference,
// regardless of how it nests inside and/or groups.
func (s *Store) Sync(ctx context.Context, index *catalog.Index) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if _, err := session.Run(ctx,
		`MATCH (c:Course) DETACH DELETE c`, nil); err != nil {
		return fmt.Errorf("clear graph: %w", err)
	}

	for _, id := range index.CourseIDs() {
		course, _ := index.Lookup(id)
		_, err := session.Run(ctx,
			`CREATE (c:Course {
				id: $id, title: $title,
				department: $department, credits: $credits
			})`,
			map[string]interface{}{
				"id":         course.ID,
				"title":      course.Title,
				"department": course.Department,
				"credits":    course.Credits,
			})
		if err != nil {
			return fmt.Errorf("create course %s: %w", course.ID, err)
		}
	}

	edges := 0
	for _, id := range index.CourseIDs() {
		course, _ := index.Lookup(id)
		if course.Prereq == nil {
			continue
		}
		for _, dep := range course.Prereq.Leaves(nil) {
			_, err := session.Run(ctx,
				`MATCH (a:Course {id: $from}), (b:Course {id: $to})
				 CREATE (a)-[:REQUIRES]->(b)`,
				map[string]interface{}{"from": course.ID, "to": dep})
			if err != nil {
				return fmt.Errorf("create edge %s->%s: %w", course.ID, dep, err)
			}
			edges++
		}
	}

	s.logger.Info("graph synced",
		zap.Int("courses", index.Len()),
		zap.Int("edges", edges))
	return nil
}

// Unlocks returns every course that transitively requires the given
// course, sorted by id. These are the courses the student moves closer
// to by passing it.
func (s *Store) Unlocks(ctx context.Context, courseID string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (c:Course)-[:REQUIRES*1..]->(p:Course {id: $id})
		 RETURN DISTINCT c.id AS id`,
		map[string]interface{}{"id": courseID})
	if err != nil {
		return nil, err
	}

	var ids []string
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		s, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("unlocks %s: non-string id %v", courseID, id)
		}
		ids = append(ids, s)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Chain returns the direct prerequisites of a course as mirrored in the
// graph, sorted by id.
func (s *Store) Chain(ctx context.Context, courseID string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (c:Course {id: $id})-[:REQUIRES]->(p:Course)
		 RETURN p.id AS id ORDER BY id`,
		map[string]interface{}{"id": courseID})
	if err != nil {
		return nil, err
	}

	var ids []string
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		s, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("chain %s: non-string id %v", courseID, id)
		}
		ids = append(ids, s)
	}
	return ids, result.Err()
}
