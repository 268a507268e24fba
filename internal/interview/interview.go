// Package interview implements the AI-graded technical interview: a template
// of topic blocks, the state machine that moves a session through them and the
// engine that consults the model for questions, grades and reports.
package interview

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
)

var (
	ErrInvalidTransition = errors.New("invalid interview state transition")
	ErrQuestionMismatch  = errors.New("question is not awaiting an answer")
	ErrEmptyAnswer       = errors.New("answer must not be empty")
	ErrAnswerTooLong     = errors.New("answer is too long")
	ErrAdvance           = errors.New("answer recorded but the interview could not advance")
	// ErrModel marks failures of the AI interviewer.
	ErrModel = errors.New("interviewer model failed")
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Difficulty int

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

func (d Difficulty) MarshalText() ([]byte, error) {
	if d < Easy || d > Hard {
		return nil, fmt.Errorf("invalid difficulty %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "easy":
		*d = Easy
	case "medium":
		*d = Medium
	case "hard":
		*d = Hard
	default:
		return fmt.Errorf("unknown difficulty %q", text)
	}
	return nil
}

type Kind string

const (
	KindBase     Kind = "base"
	KindFollowUp Kind = "follow_up"
)

type Question struct {
	ID         string     `json:"id"`
	BlockID    int        `json:"block_id"`
	Kind       Kind       `json:"kind"`
	ParentID   string     `json:"parent_id,omitempty"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	AskedAt    time.Time  `json:"asked_at"`
	Response   *Response  `json:"response,omitempty"`
}

func (q *Question) Pending() bool {
	return q.Response == nil
}

// Score is the graded score of the answer; skipped and pending questions score 0.
func (q *Question) Score() float64 {
	if q.Response == nil || q.Response.Skipped || q.Response.Evaluation == nil {
		return 0
	}
	return q.Response.Evaluation.Score
}

type Response struct {
	Answer     string         `json:"answer,omitempty"`
	Skipped    bool           `json:"skipped,omitempty"`
	Evaluation *ai.Evaluation `json:"evaluation,omitempty"`
	AnsweredAt time.Time      `json:"answered_at"`
}

// BlockProgress tracks how far the session got within one template block.
type BlockProgress struct {
	BlockID        int     `json:"block_id"`
	Name           string  `json:"name"`
	BaseAsked      int     `json:"base_asked"`
	FollowUpsAsked int     `json:"follow_ups_asked"`
	Completed      bool    `json:"completed"`
	Answered       int     `json:"answered"`
	Score          float64 `json:"score"`
	Summary        string  `json:"summary,omitempty"`
}

type Interview struct {
	ID           string           `json:"id"`
	OrgID        string           `json:"org_id"`
	CandidateID  string           `json:"candidate_id"`
	JobID        string           `json:"job_id,omitempty"`
	Title        string           `json:"title"`
	Template     *Template        `json:"template"`
	Status       Status           `json:"status"`
	Difficulty   Difficulty       `json:"difficulty"`
	CurrentBlock int              `json:"current_block"`
	Questions    []*Question      `json:"questions"`
	Blocks       []*BlockProgress `json:"blocks"`
	Result       *Result          `json:"result,omitempty"`
	Version      int              `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// New schedules an interview following tpl. The template is copied so later
// template edits do not affect running sessions.
func New(orgID, candidateID, jobID, title string, tpl *Template, now time.Time) *Interview {
	snapshot := *tpl
	snapshot.Blocks = slices.Clone(tpl.Blocks)

	if strings.TrimSpace(title) == "" {
		title = snapshot.Title
	}

	blocks := make([]*BlockProgress, 0, len(snapshot.Blocks))
	for _, b := range snapshot.Blocks {
		blocks = append(blocks, &BlockProgress{BlockID: b.ID, Name: b.Name})
	}

	return &Interview{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		CandidateID: candidateID,
		JobID:       jobID,
		Title:       title,
		Template:    &snapshot,
		Status:      StatusScheduled,
		Difficulty:  Medium,
		Blocks:      blocks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
