package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
)

// InterviewFilter narrows ListInterviews. Zero values match everything.
type InterviewFilter struct {
	CandidateID string
	JobID       string
	Status      interview.Status
}

// CreateInterview persists a new interview at version 1.
func (s *Store) CreateInterview(ctx context.Context, iv *interview.Interview) error {
	iv.Version = 1
	state, err := json.Marshal(iv)
	if err != nil {
		return fmt.Errorf("encode interview: %w", err)
	}

	_, err = s.exec(ctx, s.db,
		`INSERT INTO interviews (id, org_id, candidate_id, job_id, template, status, overall_score, state, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.OrgID, iv.CandidateID, iv.JobID, templateName(iv), string(iv.Status),
		overallScore(iv), string(state), iv.Version, iv.CreatedAt.UTC(), iv.UpdatedAt.UTC())
	if err != nil {
		iv.Version = 0
		return fmt.Errorf("insert interview: %w", convertError(err))
	}
	return nil
}

// SaveInterview writes iv if nobody saved it since it was loaded and bumps its
// version. A stale version yields ErrConflict.
func (s *Store) SaveInterview(ctx context.Context, iv *interview.Interview) error {
	loaded := iv.Version
	iv.Version = loaded + 1
	iv.UpdatedAt = s.timestamp()

	state, err := json.Marshal(iv)
	if err != nil {
		iv.Version = loaded
		return fmt.Errorf("encode interview: %w", err)
	}

	res, err := s.exec(ctx, s.db,
		`UPDATE interviews SET status = ?, overall_score = ?, state = ?, version = ?, updated_at = ?
		WHERE org_id = ? AND id = ? AND version = ?`,
		string(iv.Status), overallScore(iv), string(state), iv.Version, iv.UpdatedAt,
		iv.OrgID, iv.ID, loaded)
	if err != nil {
		iv.Version = loaded
		return fmt.Errorf("update interview: %w", err)
	}

	if err := affected(res); err != nil {
		iv.Version = loaded
		if _, getErr := s.GetInterview(ctx, iv.OrgID, iv.ID); getErr != nil {
			return getErr
		}
		return ErrConflict
	}
	return nil
}

func (s *Store) GetInterview(ctx context.Context, orgID, id string) (*interview.Interview, error) {
	return scanInterview(s.queryRow(ctx, s.db,
		`SELECT state, version FROM interviews WHERE org_id = ? AND id = ?`, orgID, id))
}

func (s *Store) ListInterviews(ctx context.Context, orgID string, f InterviewFilter) ([]*interview.Interview, error) {
	var (
		where = []string{"org_id = ?"}
		args  = []any{orgID}
	)
	if f.CandidateID != "" {
		where = append(where, "candidate_id = ?")
		args = append(args, f.CandidateID)
	}
	if f.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, f.JobID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	rows, err := s.query(ctx, s.db,
		`SELECT state, version FROM interviews WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var out []*interview.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// InterviewedCandidateIDs lists candidates with a non-cancelled interview for the job.
func (s *Store) InterviewedCandidateIDs(ctx context.Context, orgID, jobID string) ([]string, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT DISTINCT candidate_id FROM interviews WHERE org_id = ? AND job_id = ? AND status <> ?`,
		orgID, jobID, string(interview.StatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("list interviewed candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanInterview(row scanner) (*interview.Interview, error) {
	var (
		state   string
		version int
	)
	if err := row.Scan(&state, &version); err != nil {
		return nil, convertError(err)
	}

	var iv interview.Interview
	if err := json.Unmarshal([]byte(state), &iv); err != nil {
		return nil, fmt.Errorf("decode interview: %w", err)
	}
	iv.Version = version
	return &iv, nil
}

func templateName(iv *interview.Interview) string {
	if iv.Template == nil {
		return ""
	}
	return iv.Template.Name
}

func overallScore(iv *interview.Interview) sql.NullFloat64 {
	if iv.Result == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: iv.Result.OverallScore, Valid: true}
}
