package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
)

var profilePrompt = mustPrompt("profile.md")

// Analyst narrates structured candidate data such as a GitHub analysis.
type Analyst struct {
	generator contentGenerator
	logger    *zap.Logger
}

var _ ai.Analyst = (*Analyst)(nil)

func NewAnalyst(generator contentGenerator, logger *zap.Logger) *Analyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{generator: generator, logger: logger}
}

func (a *Analyst) SummarizeProfile(ctx context.Context, profile any) (string, error) {
	payload, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}

	raw, err := a.generator.GenerateContent(ctx, "You are a concise technical analyst.", fill(profilePrompt, map[string]string{
		"PROFILE_JSON": string(payload),
	}))
	if err != nil {
		return "", err
	}

	a.logger.Debug("profile summarised", zap.Int("length", len(raw)))
	return strings.TrimSpace(raw), nil
}
