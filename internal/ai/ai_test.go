package ai

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: -3, want: MinScore},
		{in: 0, want: 0},
		{in: 7.5, want: 7.5},
		{in: 11, want: MaxScore},
		{in: math.NaN(), want: MinScore},
	}

	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Fatalf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDisabled(t *testing.T) {
	var iv Interviewer = Disabled{}
	ctx := context.Background()

	if _, err := iv.GenerateQuestion(ctx, &QuestionRequest{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("GenerateQuestion error = %v, want ErrDisabled", err)
	}
	if _, err := iv.EvaluateAnswer(ctx, &EvaluationRequest{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("EvaluateAnswer error = %v, want ErrDisabled", err)
	}
	if _, err := iv.SummarizeBlock(ctx, &SummaryRequest{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("SummarizeBlock error = %v, want ErrDisabled", err)
	}
	if _, err := iv.FinalReport(ctx, &ReportRequest{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("FinalReport error = %v, want ErrDisabled", err)
	}
}
