package gemini

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/utils"
)

func testBlock() ai.Block {
	return ai.Block{
		Title:         "Concurrency",
		ContextPrompt: "Dig into goroutines and channels.",
		FocusAreas:    []string{"context cancellation", "data races"},
		Number:        2,
		Total:         3,
	}
}

func TestInterviewerGenerateQuestion(t *testing.T) {
	stub := &stubGenerator{response: "Question: \"How would you stop a leaking goroutine?\""}
	iv := NewInterviewer(stub, 0, zap.NewNop())

	q, err := iv.GenerateQuestion(context.Background(), &ai.QuestionRequest{
		Role:              "Backend [Go] engineer",
		Block:             testBlock(),
		Difficulty:        "hard",
		QuestionNumber:    2,
		MaxQuestions:      3,
		Dialogue:          []ai.Exchange{{Question: "What is a channel?", Answer: "A typed pipe."}},
		PreviousSummaries: []string{"Strong fundamentals."},
		Instructions:      "Prefer practical scenarios",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != "How would you stop a leaking goroutine?" {
		t.Fatalf("unexpected question: %q", q)
	}

	for _, want := range []string{
		"[Block 2 of 3: Concurrency]",
		"- context cancellation",
		"- Strong fundamentals.",
		"Q1: What is a channel?\nA1: A typed pipe.",
		"Ask question 2 of at most 3 in this block at hard difficulty.",
		"  - Prefer practical scenarios",
	} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, stub.lastPrompt)
		}
	}
	if !strings.Contains(stub.lastSystem, `"Backend (Go) engineer"`) {
		t.Fatalf("expected sanitized role in system prompt, got %q", stub.lastSystem)
	}
}

func TestInterviewerGenerateFollowUp(t *testing.T) {
	stub := &stubGenerator{response: "What happens if nobody reads from the channel?"}
	iv := NewInterviewer(stub, 0, nil)

	_, err := iv.GenerateQuestion(context.Background(), &ai.QuestionRequest{
		Block:         testBlock(),
		FollowUp:      true,
		FollowUpFocus: "blocking sends",
		Difficulty:    "medium",
		Dialogue:      []ai.Exchange{{Question: "q", Skipped: true}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stub.lastPrompt, "digs into: blocking sends") {
		t.Fatalf("expected follow-up focus in prompt, got:\n%s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "A1: (skipped)") {
		t.Fatalf("expected skipped answer marker, got:\n%s", stub.lastPrompt)
	}
}

func TestInterviewerEmptyQuestion(t *testing.T) {
	iv := NewInterviewer(&stubGenerator{response: "``"}, 0, nil)

	if _, err := iv.GenerateQuestion(context.Background(), &ai.QuestionRequest{Block: testBlock()}); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestInterviewerEvaluateAnswer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		response string
		score    float64
		followUp bool
		wantErr  bool
	}{
		{
			name:     "plain json",
			response: `{"score": 6.5, "feedback": " partial ", "strengths": ["clear"], "follow_up": true, "follow_up_focus": "races"}`,
			score:    6.5,
			followUp: true,
		},
		{
			name:     "fenced with strings",
			response: "```json\n{\"score\": \"9\", \"feedback\": \"great\", \"follow_up\": \"false\"}\n```",
			score:    9,
		},
		{
			name:     "out of range score",
			response: `{"score": 14, "feedback": "too generous"}`,
			score:    10,
		},
		{
			name:     "prose around json",
			response: `Here is the grade: {"score": 3} hope it helps`,
			score:    3,
		},
		{
			name:     "not json",
			response: "good answer",
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubGenerator{response: tc.response}
			iv := NewInterviewer(stub, 0, zap.NewNop())

			eval, err := iv.EvaluateAnswer(context.Background(), &ai.EvaluationRequest{
				Block:      testBlock(),
				Question:   "What is a data race?",
				Answer:     "Two goroutines touching memory without sync.",
				Difficulty: "medium",
			})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eval.Score != tc.score || eval.FollowUp != tc.followUp {
				t.Fatalf("unexpected evaluation: %+v", eval)
			}
			if strings.HasPrefix(eval.Feedback, " ") {
				t.Fatalf("expected trimmed feedback, got %q", eval.Feedback)
			}
			if !strings.Contains(stub.lastPrompt, "Two goroutines touching memory without sync.") {
				t.Fatalf("expected answer in prompt, got:\n%s", stub.lastPrompt)
			}
		})
	}
}

func TestInterviewerSummaryAndReport(t *testing.T) {
	stub := &stubGenerator{response: "  Solid grasp of channels.  "}
	iv := NewInterviewer(stub, 0, nil)

	summary, err := iv.SummarizeBlock(context.Background(), &ai.SummaryRequest{Block: testBlock()})
	if err != nil || summary != "Solid grasp of channels." {
		t.Fatalf("unexpected summary %q, %v", summary, err)
	}

	stub.response = `{"summary": "Hire.", "strengths": ["concurrency"], "weaknesses": ["testing"]}`
	report, err := iv.FinalReport(context.Background(), &ai.ReportRequest{
		BlockScores:  map[string]float64{"concurrency": 8, "basics": 6.5},
		OverallScore: 7.25,
		BlockSummary: []string{"Solid grasp of channels."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary != "Hire." || len(report.Strengths) != 1 || report.Weaknesses[0] != "testing" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !strings.Contains(stub.lastPrompt, "Overall: 7.25 / 10\n- basics: 6.50\n- concurrency: 8.00") {
		t.Fatalf("expected sorted block scores, got:\n%s", stub.lastPrompt)
	}
}

func TestAnalystSummarizeProfile(t *testing.T) {
	stub := &stubGenerator{response: "Mostly Go tooling."}
	analyst := NewAnalyst(stub, nil)

	out, err := analyst.SummarizeProfile(context.Background(), map[string]any{"login": "octocat", "languages": []string{"Go"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Mostly Go tooling." || !strings.Contains(stub.lastPrompt, `"login": "octocat"`) {
		t.Fatalf("unexpected result %q with prompt:\n%s", out, stub.lastPrompt)
	}
}

func TestInterviewerLogsShortenedReply(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reply := strings.Repeat("the candidate seems fine ", 40)
	iv := NewInterviewer(&stubGenerator{response: reply}, 16, zap.New(core))

	_, err := iv.EvaluateAnswer(context.Background(), &ai.EvaluationRequest{
		Block:    testBlock(),
		Question: "What is a goroutine?",
		Answer:   "A lightweight thread.",
	})
	if err == nil {
		t.Fatal("expected error for a reply without JSON")
	}

	entries := logs.FilterMessage("unparseable evaluation").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if got := fields["response_preview"]; got != utils.Preview(reply, 16) {
		t.Fatalf("unexpected preview %q", got)
	}
	for _, v := range fields {
		if v == reply {
			t.Fatal("full reply must not be logged")
		}
	}
}
