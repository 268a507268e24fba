package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
)

type Dashboard struct {
	OpenJobs            int                      `json:"open_jobs"`
	TotalCandidates     int                      `json:"total_candidates"`
	CandidatesByStatus  map[hiring.Status]int    `json:"candidates_by_status"`
	InterviewsByStatus  map[interview.Status]int `json:"interviews_by_status"`
	AverageOverallScore float64                  `json:"average_overall_score"`
}

// DashboardStats aggregates the organization's pipeline.
func (s *Store) DashboardStats(ctx context.Context, orgID string) (*Dashboard, error) {
	d := &Dashboard{
		CandidatesByStatus: map[hiring.Status]int{},
		InterviewsByStatus: map[interview.Status]int{},
	}

	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM jobs WHERE org_id = ? AND status = ?`,
		orgID, hiring.JobOpen).Scan(&d.OpenJobs)
	if err != nil {
		return nil, fmt.Errorf("count open jobs: %w", err)
	}

	candidates, err := s.countBy(ctx, `SELECT status, COUNT(*) FROM candidates WHERE org_id = ? GROUP BY status`, orgID)
	if err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}
	for status, n := range candidates {
		d.CandidatesByStatus[hiring.Status(status)] = n
		d.TotalCandidates += n
	}

	interviews, err := s.countBy(ctx, `SELECT status, COUNT(*) FROM interviews WHERE org_id = ? GROUP BY status`, orgID)
	if err != nil {
		return nil, fmt.Errorf("count interviews: %w", err)
	}
	for status, n := range interviews {
		d.InterviewsByStatus[interview.Status(status)] = n
	}

	var avg sql.NullFloat64
	err = s.queryRow(ctx, s.db,
		`SELECT AVG(overall_score) FROM interviews WHERE org_id = ? AND status = ? AND overall_score IS NOT NULL`,
		orgID, string(interview.StatusCompleted)).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average score: %w", err)
	}
	if avg.Valid {
		d.AverageOverallScore = math.Round(avg.Float64*100) / 100
	}

	return d, nil
}

func (s *Store) countBy(ctx context.Context, query, orgID string) (map[string]int, error) {
	rows, err := s.query(ctx, s.db, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
