package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/logger"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

const (
	defaultMaxLogLength = 200
	defaultTone         = "Friendly"
	maxResumeRunes      = 6000

	matcherSystemPrompt = "You are a careful technical recruiter."
)

// Guidance is the hiring team's standing advice for screening, read from
// ai.gemini.screening. Every field is optional.
type Guidance struct {
	Criteria     string `mapstructure:"criteria"`
	DealBreakers string `mapstructure:"deal-breakers"`
	Locations    string `mapstructure:"locations"`
	Tone         string `mapstructure:"tone"`
	Notes        string `mapstructure:"notes"`
}

type MatcherConfig struct {
	// MinScore turns assessments scored below it into rejections.
	MinScore     float64
	MaxLogLength int
	Guidance     Guidance
}

var matchPrompt = mustPrompt("match.md")

type Matcher struct {
	generator contentGenerator
	cfg       MatcherConfig
	logger    *zap.Logger
}

var _ ai.Matcher = (*Matcher)(nil)

func NewMatcher(generator contentGenerator, cfg MatcherConfig, log *zap.Logger) *Matcher {
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		cfg:       cfg,
		logger:    logger.Attach(log),
	}
}

// Evaluate asks the model whether the candidate fits the job.
func (m *Matcher) Evaluate(ctx context.Context, candidate *hiring.Candidate, job *hiring.Job) (*ai.FitAssessment, error) {
	if candidate == nil {
		return nil, errors.New("candidate is required")
	}
	if job == nil {
		return nil, errors.New("job is required")
	}

	log := m.logger.With(logger.Scope{Org: job.OrgID, Job: job.ID, Candidate: candidate.ID}.Fields()...)

	prompt, err := m.buildPrompt(candidate, job)
	if err != nil {
		return nil, err
	}

	log.Debug("screening prompt",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.Preview(prompt, m.cfg.MaxLogLength)),
	)

	raw, err := m.generator.GenerateContent(ctx, matcherSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("screening response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.Preview(raw, m.cfg.MaxLogLength)),
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		return nil, err
	}

	if assessment.Fit && m.cfg.MinScore > 0 && assessment.Score < m.cfg.MinScore {
		log.Debug("fit overruled by minimum score",
			zap.Float64("score", assessment.Score),
			zap.Float64("minimum", m.cfg.MinScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func (m *Matcher) buildPrompt(candidate *hiring.Candidate, job *hiring.Job) (string, error) {
	resume := candidate.Resume
	if runes := []rune(resume); len(runes) > maxResumeRunes {
		resume = string(runes[:maxResumeRunes])
	}

	candidateJSON, err := json.MarshalIndent(map[string]any{
		"name":             candidate.Name,
		"location":         candidate.Location,
		"skills":           candidate.Skills,
		"experience_years": candidate.ExperienceYears,
		"github":           candidate.GitHubUsername,
		"resume":           resume,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(map[string]any{
		"title":       job.Title,
		"level":       job.Level,
		"skills":      job.Skills,
		"description": job.Description,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	skills := make([]string, 0, len(job.Skills))
	for _, s := range job.Skills {
		if s = sanitizeLine(s); s != "" {
			skills = append(skills, s)
		}
	}

	g := m.cfg.Guidance
	tone := sanitizeLine(g.Tone)
	if tone == "" {
		tone = defaultTone
	}

	return fill(matchPrompt, map[string]string{
		"REQUIRED_SKILLS": orNone(strings.Join(skills, ", ")),
		"LEVEL":           orNone(sanitizeLine(job.Level)),
		"CRITERIA":        orNone(sanitizeLine(g.Criteria)),
		"DEAL_BREAKERS":   orNone(sanitizeLine(g.DealBreakers)),
		"LOCATIONS":       orNone(sanitizeLine(g.Locations)),
		"TONE":            tone,
		"NOTES":           sanitizeBlock(g.Notes),
		"CANDIDATE_JSON":  string(candidateJSON),
		"JOB_JSON":        string(jobJSON),
	}), nil
}

func parseAssessment(raw string) (*ai.FitAssessment, error) {
	var assessment ai.FitAssessment
	if err := decodeJSON(raw, &assessment); err != nil {
		return nil, err
	}
	if math.IsNaN(assessment.Score) || math.IsInf(assessment.Score, 0) {
		assessment.Score = 0
	}
	assessment.Score = math.Max(0, math.Min(1, assessment.Score))
	assessment.Reason = strings.TrimSpace(assessment.Reason)
	assessment.Message = strings.TrimSpace(assessment.Message)
	return &assessment, nil
}
