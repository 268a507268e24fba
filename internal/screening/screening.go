// Package screening narrows the candidates of a job down to the ones worth
// interviewing. Steps run in order; each may drop candidates.
package screening

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
)

// Filter is one screening step. Prepare reads the request config before any
// step runs, so a bad request fails without side effects.
type Filter interface {
	Name() string
	Disable(reason string)
	Enabled() bool
	Status() Status

	Prepare(cfg *Config) error
	Apply(ctx context.Context, deps Deps, c *hiring.Candidates) (*hiring.Candidates, Step, error)
}

// assessor is implemented by steps that ask the model about candidates.
type assessor interface {
	Assessments() map[string]*ai.FitAssessment
}

// InterviewLookup reports which candidates already have a live interview.
type InterviewLookup interface {
	InterviewedCandidateIDs(ctx context.Context, orgID, jobID string) ([]string, error)
}

type Deps struct {
	Job        *hiring.Job
	Logger     *zap.Logger
	Matcher    ai.Matcher
	Interviews InterviewLookup
	Metrics    *metrics.Metrics
}

// Step counts the candidates one filter saw and dropped.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

// Config is the screening request.
type Config struct {
	RequiredSkills []string `json:"required_skills,omitempty"`
	// MinSkillMatch is the share of required skills a candidate must have, in (0, 1].
	MinSkillMatch float64   `json:"min_skill_match,omitempty"`
	ExcludeIDs    []string  `json:"exclude_ids,omitempty"`
	AI            *AIConfig `json:"ai,omitempty"`
}

type AIConfig struct {
	Enabled         bool    `json:"enabled"`
	MinimumFitScore float64 `json:"minimum_fit_score,omitempty"`
	Concurrency     int     `json:"concurrency,omitempty"`
}

// Status is what a filter reports about itself before or after a run.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type Report struct {
	Candidates  *hiring.Candidates
	Assessments map[string]*ai.FitAssessment
	Steps       []Step
}

// toggle carries the name and on/off state every filter shares.
type toggle struct {
	name string
	// off holds the reason the step was switched off; empty while enabled.
	off string
}

func (t *toggle) Name() string { return t.name }

func (t *toggle) Enabled() bool { return t.off == "" }

func (t *toggle) Disable(reason string) {
	if reason == "" {
		reason = "disabled"
	}
	t.off = reason
}

func (t *toggle) Status() Status {
	return Status{Name: t.name, Enabled: t.Enabled(), Reason: t.off}
}

// counted builds the Step of a filter that started with initial candidates.
func counted(initial int, c *hiring.Candidates) Step {
	return Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}
}

// DisableByName switches off the named filter. It stays in the list so that
// Describe still reports it.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Default returns the standard pipeline.
func Default(ignoreInterviewed bool) []Filter {
	return []Filter{
		NewStatus(),
		NewExcluded(),
		NewInterviewed(ignoreInterviewed),
		NewSkills(),
		NewAIFit(),
	}
}

// Run prepares every enabled filter and then applies them in order.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, c *hiring.Candidates) (*Report, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.Enabled() {
			continue
		}
		if err := step.Prepare(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	report := &Report{Assessments: make(map[string]*ai.FitAssessment)}
	started := time.Now()

	for _, step := range steps {
		log := deps.Logger.With(zap.String("filter", step.Name()))
		if !step.Enabled() {
			log.Info("screening step skipped", zap.String("reason", step.Status().Reason))
			continue
		}

		next, info, err := step.Apply(ctx, Deps{
			Job:        deps.Job,
			Logger:     log,
			Matcher:    deps.Matcher,
			Interviews: deps.Interviews,
			Metrics:    deps.Metrics,
		}, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		info.Name = step.Name()
		report.Steps = append(report.Steps, info)
		c = next

		log.Info("screening step finished",
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		if a, ok := step.(assessor); ok {
			for id, assessment := range a.Assessments() {
				report.Assessments[id] = assessment
			}
		}
	}

	deps.Metrics.IncrementScreenings()
	deps.Logger.Debug("screening finished", zap.Int("left", c.Len()), zap.Duration("took", time.Since(started)))

	report.Candidates = c
	return report, nil
}

// Describe reports the status of every filter, in pipeline order.
func Describe(steps []Filter) []Status {
	out := make([]Status, len(steps))
	for i, step := range steps {
		out[i] = step.Status()
	}
	return out
}
