package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ombra/registrar/internal/recommend"
)

// SaveRecommendation appends an issued recommendation to the audit log.
func (s *Store) SaveRecommendation(ctx context.Context, studentID string, resp *recommend.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO recommendations (id, student_id, schedule_id, partial, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), studentID, resp.ScheduleID, resp.Partial, payload)
	if err != nil {
		return fmt.Errorf("save recommendation for %s: %w", studentID, err)
	}
	return nil
}

// RecentRecommendations returns the latest audit entries for a student,
// newest first.
func (s *Store) RecentRecommendations(ctx context.Context, studentID string, limit int) ([]*recommend.Response, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT payload FROM recommendations
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent recommendations for %s: %w", studentID, err)
	}
	defer rows.Close()

	var out []*recommend.Response
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		var resp recommend.Response
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, fmt.Errorf("decode recommendation: %w", err)
		}
		out = append(out, &resp)
	}
	return out, rows.Err()
}
