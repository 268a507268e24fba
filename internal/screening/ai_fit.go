package screening

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
)

const defaultAIConcurrency = 4

type aiFitFilter struct {
	toggle
	config      *AIConfig
	assessments map[string]*ai.FitAssessment
}

// NewAIFit creates the step that asks the model about each candidate.
// Candidates the model could not assess are kept.
func NewAIFit() Filter {
	return &aiFitFilter{toggle: toggle{name: "ai_fit"}}
}

func (f *aiFitFilter) Prepare(cfg *Config) error {
	f.config = cfg.AI
	if f.config == nil || !f.config.Enabled {
		f.Disable("ai screening is not enabled")
		return nil
	}
	if f.config.MinimumFitScore < 0 || f.config.MinimumFitScore > 1 {
		return errors.New("minimum fit score must be within [0, 1]")
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, deps Deps, c *hiring.Candidates) (*hiring.Candidates, Step, error) {
	initial := c.Len()
	switch {
	case deps.Matcher == nil:
		deps.Logger.Warn("no ai matcher, every candidate is kept")
		return c, counted(initial, c), nil
	case deps.Job == nil:
		return c, Step{}, errors.New("job is required for AI evaluation")
	}

	assessments, err := f.evaluate(ctx, deps, c)
	if err != nil {
		return c, Step{}, err
	}
	f.assessments = assessments

	return c, counted(initial, c), nil
}

func (f *aiFitFilter) Assessments() map[string]*ai.FitAssessment {
	return f.assessments
}

// evaluate runs the matcher for every candidate with bounded parallelism.
// Candidates the model could not assess are kept with the error attached.
func (f *aiFitFilter) evaluate(ctx context.Context, deps Deps, c *hiring.Candidates) (map[string]*ai.FitAssessment, error) {
	limit := f.config.Concurrency
	if limit <= 0 {
		limit = defaultAIConcurrency
	}

	results := make([]*ai.FitAssessment, c.Len())
	failures := make([]error, c.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, candidate := range c.Items {
		g.Go(func() error {
			assessment, err := deps.Matcher.Evaluate(gctx, candidate, deps.Job)
			deps.Metrics.IncrementAICall(err == nil)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			results[i] = assessment
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assessments := make(map[string]*ai.FitAssessment, c.Len())
	keep := make(map[*hiring.Candidate]bool, c.Len())
	for i, candidate := range c.Items {
		log := deps.Logger.With(zap.String("candidate_id", candidate.ID))

		if err := failures[i]; err != nil {
			log.Warn("model could not assess the candidate, keeping", zap.Error(err))
			candidate.AI = &hiring.AIAssessment{Error: err.Error()}
			keep[candidate] = true
			continue
		}

		a := results[i]
		if f.config.MinimumFitScore > 0 && a.Score < f.config.MinimumFitScore {
			a.Fit = false
		}
		candidate.AI = &hiring.AIAssessment{Fit: a.Fit, Score: a.Score, Reason: a.Reason, Message: a.Message, Raw: a.Raw}
		assessments[candidate.ID] = a
		keep[candidate] = a.Fit

		log.Debug("candidate assessed", zap.Bool("fit", a.Fit), zap.Float64("ai_score", a.Score), zap.String("reason", a.Reason))
	}

	c.Keep(func(candidate *hiring.Candidate) bool { return keep[candidate] })
	c.SortByScore()

	return assessments, nil
}
