package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/catalog"
)

// LoadCatalog reads the full course and section snapshot for index
// construction. Enrollment counts are whatever the enrollment system
// last wrote; they are not locked for the solve.
func (s *Store) LoadCatalog(ctx context.Context) ([]catalog.Course, []catalog.Section, error) {
	courses, err := s.loadCourses(ctx)
	if err != nil {
		return nil, nil, err
	}
	sections, err := s.loadSections(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("catalog snapshot loaded",
		zap.Int("courses", len(courses)), zap.Int("sections", len(sections)))
	return courses, sections, nil
}

// SaveCourse upserts a course row. Used by seeding and admin tooling.
func (s *Store) SaveCourse(ctx context.Context, c *catalog.Course) error {
	var prereqJSON []byte
	if c.Prereq != nil {
		var err error
		prereqJSON, err = json.Marshal(c.Prereq)
		if err != nil {
			return fmt.Errorf("marshal prereq for %s: %w", c.ID, err)
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO courses (id, title, department, credits, prereq, coreqs)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			department = EXCLUDED.department,
			credits = EXCLUDED.credits,
			prereq = EXCLUDED.prereq,
			coreqs = EXCLUDED.coreqs`,
		c.ID, c.Title, c.Department, c.Credits, prereqJSON, c.Coreqs)
	if err != nil {
		return fmt.Errorf("save course %s: %w", c.ID, err)
	}
	return nil
}

// SaveSection upserts a section and replaces its meeting rows.
func (s *Store) SaveSection(ctx context.Context, sec *catalog.Section) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sections (id, course_id, instructor_id, instructor_rating, capacity, enrolled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			course_id = EXCLUDED.course_id,
			instructor_id = EXCLUDED.instructor_id,
			instructor_rating = EXCLUDED.instructor_rating,
			capacity = EXCLUDED.capacity,
			enrolled = EXCLUDED.enrolled`,
		sec.ID, sec.CourseID, sec.InstructorID, sec.InstructorRating, sec.Capacity, sec.Enrolled)
	if err != nil {
		return fmt.Errorf("save section %s: %w", sec.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM section_meetings WHERE section_id = $1`, sec.ID); err != nil {
		return fmt.Errorf("clear meetings for %s: %w", sec.ID, err)
	}
	for _, m := range sec.Meetings {
		if _, err := tx.Exec(ctx, `
			INSERT INTO section_meetings (section_id, day, start_min, end_min)
			VALUES ($1, $2, $3, $4)`,
			sec.ID, int(m.Day), m.Start, m.End); err != nil {
			return fmt.Errorf("save meeting for %s: %w", sec.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) loadCourses(ctx context.Context) ([]catalog.Course, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, COALESCE(department,''), credits, prereq, COALESCE(coreqs, '{}')
		FROM courses
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	defer rows.Close()

	var out []catalog.Course
	for rows.Next() {
		var c catalog.Course
		var prereqJSON []byte
		if err := rows.Scan(&c.ID, &c.Title, &c.Department, &c.Credits, &prereqJSON, &c.Coreqs); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		if len(prereqJSON) > 0 && string(prereqJSON) != "null" {
			var expr catalog.Expr
			if err := json.Unmarshal(prereqJSON, &expr); err != nil {
				return nil, fmt.Errorf("course %s: decode prereq: %w", c.ID, err)
			}
			c.Prereq = &expr
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadSections(ctx context.Context) ([]catalog.Section, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, course_id, COALESCE(instructor_id,''), COALESCE(instructor_rating, 0),
		       capacity, enrolled
		FROM sections
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	defer rows.Close()

	var out []catalog.Section
	byID := make(map[string]int)
	for rows.Next() {
		var sec catalog.Section
		if err := rows.Scan(&sec.ID, &sec.CourseID, &sec.InstructorID,
			&sec.InstructorRating, &sec.Capacity, &sec.Enrolled); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		byID[sec.ID] = len(out)
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	meetingRows, err := s.db.Query(ctx, `
		SELECT section_id, day, start_min, end_min
		FROM section_meetings
		ORDER BY section_id, day, start_min`)
	if err != nil {
		return nil, fmt.Errorf("load section meetings: %w", err)
	}
	defer meetingRows.Close()

	for meetingRows.Next() {
		var sectionID string
		var day, start, end int
		if err := meetingRows.Scan(&sectionID, &day, &start, &end); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		i, ok := byID[sectionID]
		if !ok {
			return nil, fmt.Errorf("meeting references unknown section %s", sectionID)
		}
		out[i].Meetings = append(out[i].Meetings, catalog.TimeSlot{
			Day: time.Weekday(day), Start: start, End: end,
		})
	}
	return out, meetingRows.Err()
}
