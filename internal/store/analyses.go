package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/github"
)

// SaveAnalysis stores the latest GitHub analysis of a candidate, replacing any earlier one.
func (s *Store) SaveAnalysis(ctx context.Context, orgID, candidateID string, a *github.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	_, err = s.exec(ctx, s.db,
		`INSERT INTO github_analyses (org_id, candidate_id, login, data, analyzed_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (org_id, candidate_id) DO UPDATE SET
			login = excluded.login, data = excluded.data, analyzed_at = excluded.analyzed_at`,
		orgID, candidateID, a.Login, string(data), a.AnalyzedAt.UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", convertError(err))
	}
	return nil
}

func (s *Store) GetAnalysis(ctx context.Context, orgID, candidateID string) (*github.Analysis, error) {
	var data string
	err := s.queryRow(ctx, s.db,
		`SELECT data FROM github_analyses WHERE org_id = ? AND candidate_id = ?`, orgID, candidateID).
		Scan(&data)
	if err != nil {
		return nil, convertError(err)
	}

	var a github.Analysis
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}
