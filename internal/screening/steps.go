package screening

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
)

type statusFilter struct{ toggle }

// NewStatus creates a filter that removes hired and rejected candidates.
func NewStatus() Filter {
	return &statusFilter{toggle{name: "status"}}
}

func (f *statusFilter) Prepare(*Config) error { return nil }

func (f *statusFilter) Apply(_ context.Context, deps Deps, c *hiring.Candidates) (*hiring.Candidates, Step, error) {
	initial := c.Len()
	closed := c.Keep(func(candidate *hiring.Candidate) bool {
		return !candidate.Status.Terminal()
	})
	logDropped(deps.Logger, "candidate is hired or rejected", closed)

	return c, counted(initial, c), nil
}

type interviewedFilter struct {
	toggle
	ignore bool
}

// NewInterviewed creates a filter that removes candidates who already have a
// non-cancelled interview for the job. ignore keeps them.
func NewInterviewed(ignore bool) Filter {
	return &interviewedFilter{toggle: toggle{name: "interviewed"}, ignore: ignore}
}

func (f *interviewedFilter) Prepare(*Config) error { return nil }

func (f *interviewedFilter) Apply(ctx context.Context, deps Deps, c *hiring.Candidates) (*hiring.Candidates, Step, error) {
	initial := c.Len()
	if f.ignore {
		deps.Logger.Debug("keeping interviewed candidates on request")
		return c, counted(initial, c), nil
	}

	switch {
	case deps.Interviews == nil:
		return c, Step{}, errors.New("interview lookup is required")
	case deps.Job == nil:
		return c, Step{}, errors.New("job is required")
	}

	ids, err := deps.Interviews.InterviewedCandidateIDs(ctx, deps.Job.OrgID, deps.Job.ID)
	if err != nil {
		return c, Step{}, fmt.Errorf("get interviewed candidates: %w", err)
	}

	logDropped(deps.Logger, "candidate already has an interview for the job", c.Exclude(hiring.CandidateIDField, ids))
	return c, counted(initial, c), nil
}

func (f *interviewedFilter) Status() Status {
	s := f.toggle.Status()
	s.Details = map[string]string{"exclude_interviewed": strconv.FormatBool(!f.ignore)}
	if f.ignore && s.Reason == "" {
		s.Reason = "interviewed candidates are kept on request"
	}
	return s
}

type excludedFilter struct {
	toggle
	ids []string
}

// NewExcluded creates a filter that removes the candidate ids listed in the
// request.
func NewExcluded() Filter {
	return &excludedFilter{toggle: toggle{name: "excluded"}}
}

func (f *excludedFilter) Prepare(cfg *Config) error {
	f.ids = trimmed(cfg.ExcludeIDs)
	return nil
}

func (f *excludedFilter) Apply(_ context.Context, deps Deps, c *hiring.Candidates) (*hiring.Candidates, Step, error) {
	initial := c.Len()
	logDropped(deps.Logger, "candidate is on the exclude list", c.Exclude(hiring.CandidateIDField, f.ids))
	return c, counted(initial, c), nil
}

func (f *excludedFilter) Status() Status {
	s := f.toggle.Status()
	s.Details = map[string]string{"count": strconv.Itoa(len(f.ids))}
	return s
}

type skillsFilter struct {
	toggle
	required []string
	minMatch float64
}

// NewSkills creates a filter that removes candidates lacking required skills.
// Without skills in the request the job's skills are used.
func NewSkills() Filter {
	return &skillsFilter{toggle: toggle{name: "skills"}}
}

func (f *skillsFilter) Prepare(cfg *Config) error {
	if cfg.MinSkillMatch < 0 || cfg.MinSkillMatch > 1 {
		return fmt.Errorf("min skill match must be within [0, 1], got %v", cfg.MinSkillMatch)
	}

	f.required = trimmed(cfg.RequiredSkills)
	f.minMatch = cfg.MinSkillMatch
	if f.minMatch == 0 {
		f.minMatch = 1
	}
	return nil
}

func (f *skillsFilter) Apply(_ context.Context, deps Deps, c *hiring.Candidates) (*hiring.Candidates, Step, error) {
	initial := c.Len()

	required := f.required
	if len(required) == 0 && deps.Job != nil {
		required = deps.Job.Skills
	}
	if len(required) == 0 {
		return c, counted(initial, c), nil
	}

	dropped := c.Keep(func(candidate *hiring.Candidate) bool {
		matched := 0
		for _, skill := range required {
			if candidate.HasSkill(skill) {
				matched++
			}
		}
		return float64(matched)/float64(len(required)) >= f.minMatch
	})
	logDropped(deps.Logger.With(zap.Strings("required_skills", required)), "candidate lacks required skills", dropped)

	return c, counted(initial, c), nil
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func logDropped(log *zap.Logger, reason string, ids []string) {
	if len(ids) == 0 {
		return
	}
	log.Info("candidates dropped", zap.String("reason", reason), zap.Strings("candidate_ids", ids))
}
