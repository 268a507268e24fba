package hiring

import (
	"slices"
	"strings"
	"time"
)

const (
	CandidateIDField    = "ID"
	CandidateJobIDField = "JobID"
	CandidateEmailField = "Email"
)

type Candidates struct {
	Items []*Candidate
}

type Candidate struct {
	ID              string        `json:"id"`
	OrgID           string        `json:"org_id"`
	JobID           string        `json:"job_id,omitempty"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	GitHubUsername  string        `json:"github_username,omitempty"`
	Location        string        `json:"location,omitempty"`
	Resume          string        `json:"resume,omitempty"`
	Skills          []string      `json:"skills,omitempty"`
	ExperienceYears int           `json:"experience_years,omitempty"`
	Status          Status        `json:"status"`
	Source          string        `json:"source,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	AI              *AIAssessment `json:"ai,omitempty"`
}

// AIAssessment is the screening verdict attached to a candidate for a job.
type AIAssessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Raw     string  `json:"raw,omitempty"`
	Error   string  `json:"error,omitempty"`
}

func (c *Candidate) GetStringField(name string) string {
	switch name {
	case CandidateIDField:
		return c.ID
	case CandidateJobIDField:
		return c.JobID
	case CandidateEmailField:
		return strings.ToLower(c.Email)
	default:
		return ""
	}
}

// HasSkill matches case-insensitively, ignoring surrounding whitespace.
func (c *Candidate) HasSkill(skill string) bool {
	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill == "" {
		return false
	}
	for _, s := range c.Skills {
		if strings.ToLower(strings.TrimSpace(s)) == skill {
			return true
		}
	}
	return false
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, candidate := range c.Items {
		ids = append(ids, candidate.ID)
	}
	return ids
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// Exclude removes candidates whose field matches any of targets and returns
// the removed candidate ids. Remaining candidates keep their order.
func (c *Candidates) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[target] = struct{}{}
	}

	return c.Keep(func(candidate *Candidate) bool {
		_, drop := set[candidate.GetStringField(name)]
		return !drop
	})
}

// Keep retains candidates for which keep returns true and returns the ids of
// the dropped ones.
func (c *Candidates) Keep(keep func(*Candidate) bool) []string {
	var excluded []string
	kept := c.Items[:0]
	for _, candidate := range c.Items {
		if keep(candidate) {
			kept = append(kept, candidate)
			continue
		}
		excluded = append(excluded, candidate.ID)
	}
	clear(c.Items[len(kept):])
	c.Items = kept
	return excluded
}

// SortByScore orders candidates by AI score, highest first. Candidates without
// an assessment go last; ties keep their relative order.
func (c *Candidates) SortByScore() {
	slices.SortStableFunc(c.Items, func(a, b *Candidate) int {
		as, bs := score(a), score(b)
		switch {
		case as > bs:
			return -1
		case as < bs:
			return 1
		default:
			return 0
		}
	})
}

func score(c *Candidate) float64 {
	if c.AI == nil || c.AI.Error != "" {
		return -1
	}
	return c.AI.Score
}

// ReportByStatus groups candidate names by their pipeline status.
func (c *Candidates) ReportByStatus() map[Status][]string {
	report := make(map[Status][]string)
	for _, candidate := range c.Items {
		report[candidate.Status] = append(report[candidate.Status], candidate.Name)
	}
	return report
}
