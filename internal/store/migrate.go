package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations(id),
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_org_id ON users (org_id)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT '',
		skills TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_org_id ON jobs (org_id)`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations(id),
		job_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		github_username TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		resume TEXT NOT NULL DEFAULT '',
		skills TEXT NOT NULL DEFAULT '[]',
		experience_years INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		ai TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_org_job ON candidates (org_id, job_id)`,
	`CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations(id),
		candidate_id TEXT NOT NULL,
		job_id TEXT NOT NULL DEFAULT '',
		template TEXT NOT NULL,
		status TEXT NOT NULL,
		overall_score DOUBLE PRECISION,
		state TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_org_candidate ON interviews (org_id, candidate_id)`,
	`CREATE TABLE IF NOT EXISTS github_analyses (
		org_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		login TEXT NOT NULL,
		data TEXT NOT NULL,
		analyzed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (org_id, candidate_id)
	)`,
}

// Migrate creates missing tables and indexes. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	s.logger.Info("schema migrated", zap.Int("statements", len(schema)))
	return nil
}
