package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/recommend"
)

// ErrStudentNotFound is returned when a student id has no stored record.
// It aliases the recommendation service's sentinel so callers on either
// side of the boundary can match it with errors.Is.
var ErrStudentNotFound = recommend.ErrStudentNotFound

// GetStudent loads a student's academic record. Returns a fresh record
// each call; callers may mutate it freely.
func (s *Store) GetStudent(ctx context.Context, studentID string) (*catalog.StudentRecord, error) {
	rec := &catalog.StudentRecord{StudentID: studentID}

	err := s.db.QueryRow(ctx, `
		SELECT min_credits, max_credits FROM students WHERE id = $1`,
		studentID,
	).Scan(&rec.MinCredits, &rec.MaxCredits)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("student %s: %w", studentID, ErrStudentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", studentID, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT course_id, status, COALESCE(grade,''), passed
		FROM student_courses
		WHERE student_id = $1
		ORDER BY course_id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("student %s courses: %w", studentID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var courseID, status, grade string
		var passed bool
		if err := rows.Scan(&courseID, &status, &grade, &passed); err != nil {
			return nil, fmt.Errorf("scan student course: %w", err)
		}
		switch status {
		case "completed":
			rec.Completed = append(rec.Completed, catalog.CompletedCourse{
				CourseID: courseID, Grade: grade, Passed: passed,
			})
		case "in_progress":
			rec.InProgress = append(rec.InProgress, courseID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	reqRows, err := s.db.Query(ctx, `
		SELECT course_id FROM student_requirements
		WHERE student_id = $1
		ORDER BY course_id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("student %s requirements: %w", studentID, err)
	}
	defer reqRows.Close()

	for reqRows.Next() {
		var courseID string
		if err := reqRows.Scan(&courseID); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		rec.Requirements = append(rec.Requirements, courseID)
	}
	return rec, reqRows.Err()
}

// SaveStudent upserts a student record, replacing transcript and
// requirement rows. Used by seeding and admin tooling.
func (s *Store) SaveStudent(ctx context.Context, rec *catalog.StudentRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO students (id, min_credits, max_credits)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			min_credits = EXCLUDED.min_credits,
			max_credits = EXCLUDED.max_credits`,
		rec.StudentID, rec.MinCredits, rec.MaxCredits)
	if err != nil {
		return fmt.Errorf("save student %s: %w", rec.StudentID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM student_courses WHERE student_id = $1`, rec.StudentID); err != nil {
		return fmt.Errorf("clear student courses: %w", err)
	}
	for _, c := range rec.Completed {
		if _, err := tx.Exec(ctx, `
			INSERT INTO student_courses (student_id, course_id, status, grade, passed)
			VALUES ($1, $2, 'completed', $3, $4)`,
			rec.StudentID, c.CourseID, c.Grade, c.Passed); err != nil {
			return fmt.Errorf("save completed %s: %w", c.CourseID, err)
		}
	}
	for _, id := range rec.InProgress {
		if _, err := tx.Exec(ctx, `
			INSERT INTO student_courses (student_id, course_id, status, passed)
			VALUES ($1, $2, 'in_progress', false)`,
			rec.StudentID, id); err != nil {
			return fmt.Errorf("save in-progress %s: %w", id, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM student_requirements WHERE student_id = $1`, rec.StudentID); err != nil {
		return fmt.Errorf("clear requirements: %w", err)
	}
	for _, id := range rec.Requirements {
		if _, err := tx.Exec(ctx, `
			INSERT INTO student_requirements (student_id, course_id)
			VALUES ($1, $2)`,
			rec.StudentID, id); err != nil {
			return fmt.Errorf("save requirement %s: %w", id, err)
		}
	}

	return tx.Commit(ctx)
}
