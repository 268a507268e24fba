package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
)

const jobColumns = `id, org_id, title, description, level, skills, status, created_at, updated_at`

func (s *Store) CreateJob(ctx context.Context, job *hiring.Job) error {
	now := s.timestamp()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = hiring.JobOpen
	}
	job.CreatedAt, job.UpdatedAt = now, now

	skills, err := encodeList(job.Skills)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, s.db,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OrgID, job.Title, job.Description, job.Level, skills, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", convertError(err))
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *hiring.Job) error {
	job.UpdatedAt = s.timestamp()
	skills, err := encodeList(job.Skills)
	if err != nil {
		return err
	}

	res, err := s.exec(ctx, s.db,
		`UPDATE jobs SET title = ?, description = ?, level = ?, skills = ?, status = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		job.Title, job.Description, job.Level, skills, job.Status, job.UpdatedAt, job.OrgID, job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return affected(res)
}

func (s *Store) GetJob(ctx context.Context, orgID, id string) (*hiring.Job, error) {
	return scanJob(s.queryRow(ctx, s.db,
		`SELECT `+jobColumns+` FROM jobs WHERE org_id = ? AND id = ?`, orgID, id))
}

func (s *Store) ListJobs(ctx context.Context, orgID string) ([]*hiring.Job, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+jobColumns+` FROM jobs WHERE org_id = ? ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*hiring.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row scanner) (*hiring.Job, error) {
	var (
		j      hiring.Job
		skills string
	)
	err := row.Scan(&j.ID, &j.OrgID, &j.Title, &j.Description, &j.Level, &skills, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, convertError(err)
	}
	if j.Skills, err = decodeList(skills); err != nil {
		return nil, err
	}
	return &j, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
