// Package ai declares the model-backed capabilities the hiring workflow relies on.
package ai

import (
	"context"
	"errors"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
)

// Interviewer drives the conversational part of a technical interview.
type Interviewer interface {
	GenerateQuestion(ctx context.Context, req *QuestionRequest) (string, error)
	EvaluateAnswer(ctx context.Context, req *EvaluationRequest) (*Evaluation, error)
	SummarizeBlock(ctx context.Context, req *SummaryRequest) (string, error)
	FinalReport(ctx context.Context, req *ReportRequest) (*Report, error)
}

// Matcher scores how well a candidate fits a job.
type Matcher interface {
	Evaluate(ctx context.Context, candidate *hiring.Candidate, job *hiring.Job) (*FitAssessment, error)
}

// Analyst writes a short narrative over structured candidate data.
type Analyst interface {
	SummarizeProfile(ctx context.Context, profile any) (string, error)
}

type FitAssessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Raw     string  `json:"-"`
}

// ErrDisabled is returned by Disabled for every call.
var ErrDisabled = errors.New("ai provider is not configured")

// Disabled stands in for a model when none is configured.
type Disabled struct{}

func (Disabled) GenerateQuestion(context.Context, *QuestionRequest) (string, error) {
	return "", ErrDisabled
}

func (Disabled) EvaluateAnswer(context.Context, *EvaluationRequest) (*Evaluation, error) {
	return nil, ErrDisabled
}

func (Disabled) SummarizeBlock(context.Context, *SummaryRequest) (string, error) {
	return "", ErrDisabled
}

func (Disabled) FinalReport(context.Context, *ReportRequest) (*Report, error) {
	return nil, ErrDisabled
}
