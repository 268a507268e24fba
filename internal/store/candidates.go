package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
)

const candidateColumns = `id, org_id, job_id, name, email, github_username, location, resume, skills,
	experience_years, status, source, notes, ai, created_at, updated_at`

const defaultListLimit = 100

// CandidateFilter narrows ListCandidates. Zero values match everything.
type CandidateFilter struct {
	JobID  string
	Status hiring.Status
	Limit  int
	Offset int
}

func (s *Store) CreateCandidate(ctx context.Context, c *hiring.Candidate) error {
	now := s.timestamp()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = hiring.StatusNew
	}
	c.Email = normalizeEmail(c.Email)
	c.CreatedAt, c.UpdatedAt = now, now

	skills, assessment, err := encodeCandidate(c)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, s.db,
		`INSERT INTO candidates (`+candidateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrgID, c.JobID, c.Name, c.Email, c.GitHubUsername, c.Location, c.Resume, skills,
		c.ExperienceYears, string(c.Status), c.Source, c.Notes, assessment, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", convertError(err))
	}
	return nil
}

// UpdateCandidate overwrites the mutable fields of the candidate.
func (s *Store) UpdateCandidate(ctx context.Context, c *hiring.Candidate) error {
	c.UpdatedAt = s.timestamp()
	c.Email = normalizeEmail(c.Email)

	skills, assessment, err := encodeCandidate(c)
	if err != nil {
		return err
	}

	res, err := s.exec(ctx, s.db,
		`UPDATE candidates SET job_id = ?, name = ?, email = ?, github_username = ?, location = ?,
		resume = ?, skills = ?, experience_years = ?, status = ?, source = ?, notes = ?, ai = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		c.JobID, c.Name, c.Email, c.GitHubUsername, c.Location, c.Resume, skills, c.ExperienceYears,
		string(c.Status), c.Source, c.Notes, assessment, c.UpdatedAt, c.OrgID, c.ID)
	if err != nil {
		return fmt.Errorf("update candidate: %w", convertError(err))
	}
	return affected(res)
}

// SaveAssessment attaches a screening verdict to a candidate.
func (s *Store) SaveAssessment(ctx context.Context, orgID, candidateID string, a *hiring.AIAssessment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	res, err := s.exec(ctx, s.db,
		`UPDATE candidates SET ai = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		string(raw), s.timestamp(), orgID, candidateID)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return affected(res)
}

func (s *Store) GetCandidate(ctx context.Context, orgID, id string) (*hiring.Candidate, error) {
	return scanCandidate(s.queryRow(ctx, s.db,
		`SELECT `+candidateColumns+` FROM candidates WHERE org_id = ? AND id = ?`, orgID, id))
}

func (s *Store) ListCandidates(ctx context.Context, orgID string, f CandidateFilter) ([]*hiring.Candidate, error) {
	var (
		where = []string{"org_id = ?"}
		args  = []any{orgID}
	)
	if f.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, f.JobID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	limit := f.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	args = append(args, limit, max(f.Offset, 0))

	rows, err := s.query(ctx, s.db,
		`SELECT `+candidateColumns+` FROM candidates WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*hiring.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCandidate removes the candidate with their interviews and analyses.
func (s *Store) DeleteCandidate(ctx context.Context, orgID, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `DELETE FROM candidates WHERE org_id = ? AND id = ?`, orgID, id)
		if err != nil {
			return fmt.Errorf("delete candidate: %w", err)
		}
		if err := affected(res); err != nil {
			return err
		}

		for _, table := range []string{"interviews", "github_analyses"} {
			if _, err := s.exec(ctx, tx,
				`DELETE FROM `+table+` WHERE org_id = ? AND candidate_id = ?`, orgID, id); err != nil {
				return fmt.Errorf("delete candidate %s: %w", table, err)
			}
		}
		return nil
	})
}

func encodeCandidate(c *hiring.Candidate) (string, sql.NullString, error) {
	skills, err := encodeList(c.Skills)
	if err != nil {
		return "", sql.NullString{}, err
	}
	if c.AI == nil {
		return skills, sql.NullString{}, nil
	}
	raw, err := json.Marshal(c.AI)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode assessment: %w", err)
	}
	return skills, sql.NullString{String: string(raw), Valid: true}, nil
}

func scanCandidate(row scanner) (*hiring.Candidate, error) {
	var (
		c          hiring.Candidate
		status     string
		skills     string
		assessment sql.NullString
	)
	err := row.Scan(&c.ID, &c.OrgID, &c.JobID, &c.Name, &c.Email, &c.GitHubUsername, &c.Location,
		&c.Resume, &skills, &c.ExperienceYears, &status, &c.Source, &c.Notes, &assessment,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, convertError(err)
	}

	c.Status = hiring.Status(status)
	if c.Skills, err = decodeList(skills); err != nil {
		return nil, err
	}
	if assessment.Valid && assessment.String != "" {
		c.AI = &hiring.AIAssessment{}
		if err := json.Unmarshal([]byte(assessment.String), c.AI); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
	}
	return &c, nil
}
