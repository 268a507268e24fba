package ai

import "math"

// Exchange is one asked question and the candidate's answer.
type Exchange struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer,omitempty"`
	Skipped  bool    `json:"skipped,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// Block describes the interview section a request refers to.
type Block struct {
	Title         string
	ContextPrompt string
	FocusAreas    []string
	Number        int
	Total         int
}

type QuestionRequest struct {
	Role              string
	Block             Block
	FollowUp          bool
	FollowUpFocus     string
	Difficulty        string
	QuestionNumber    int
	MaxQuestions      int
	Dialogue          []Exchange
	PreviousSummaries []string
	Instructions      string
}

type EvaluationRequest struct {
	Role       string
	Block      Block
	Question   string
	Answer     string
	Difficulty string
	Dialogue   []Exchange
}

// Evaluation is the model's grading of a single answer on a 0-10 scale.
type Evaluation struct {
	Score         float64  `json:"score"`
	Feedback      string   `json:"feedback,omitempty"`
	Strengths     []string `json:"strengths,omitempty"`
	Weaknesses    []string `json:"weaknesses,omitempty"`
	FollowUp      bool     `json:"follow_up,omitempty"`
	FollowUpFocus string   `json:"follow_up_focus,omitempty"`
}

type SummaryRequest struct {
	Role     string
	Block    Block
	Dialogue []Exchange
}

type ReportRequest struct {
	Role         string
	Candidate    string
	BlockScores  map[string]float64
	OverallScore float64
	BlockSummary []string
	Dialogue     []Exchange
}

// Report is the narrative part of an interview result.
type Report struct {
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

const (
	MinScore = 0
	MaxScore = 10
)

// ClampScore keeps a score within the 0-10 evaluation scale.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return MinScore
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}
