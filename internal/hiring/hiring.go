// Package hiring holds the tenant-scoped records of the hiring pipeline:
// organizations, jobs and candidates.
package hiring

import "time"

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	JobOpen   = "open"
	JobClosed = "closed"
)

type Job struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Level       string    `json:"level,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (j *Job) IsOpen() bool {
	return j != nil && j.Status == JobOpen
}
