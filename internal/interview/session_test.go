package interview

import (
	"errors"
	"testing"
	"time"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func startedInterview(t *testing.T) *Interview {
	t.Helper()

	iv := New("org-1", "cand-1", "job-1", "", testTemplate(t), testNow)
	if err := iv.Begin(testNow); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	return iv
}

func ask(t *testing.T, iv *Interview, id string, kind Kind) *Question {
	t.Helper()

	q := &Question{ID: id, BlockID: iv.CurrentTemplateBlock().ID, Kind: kind, Difficulty: iv.Difficulty, Text: id}
	if err := iv.Ask(q); err != nil {
		t.Fatalf("Ask(%s) returned error: %v", id, err)
	}
	return q
}

func answer(t *testing.T, iv *Interview, id string, score float64, followUp bool) {
	t.Helper()

	resp := &Response{Answer: "answer", Evaluation: &ai.Evaluation{Score: score, FollowUp: followUp}, AnsweredAt: testNow}
	if err := iv.Record(id, resp); err != nil {
		t.Fatalf("Record(%s) returned error: %v", id, err)
	}
}

func TestNewSnapshotsTemplate(t *testing.T) {
	tpl := testTemplate(t)
	iv := New("org-1", "cand-1", "", "", tpl, testNow)

	tpl.Blocks[0].Title = "changed"

	if iv.Template.Blocks[0].Title != "Basics" {
		t.Fatalf("template edit leaked into interview: %q", iv.Template.Blocks[0].Title)
	}
	if iv.Title != "Test Engineer" {
		t.Fatalf("expected template title as fallback, got %q", iv.Title)
	}
	if iv.Status != StatusScheduled || iv.Difficulty != Medium {
		t.Fatalf("unexpected initial state: %s %s", iv.Status, iv.Difficulty)
	}
	if len(iv.Blocks) != 2 || iv.Blocks[1].Name != "design" {
		t.Fatalf("unexpected block progress: %+v", iv.Blocks)
	}
	if iv.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	iv := New("org-1", "cand-1", "", "", testTemplate(t), testNow)

	if err := iv.Finish(&Result{}, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected finishing a scheduled interview to fail, got %v", err)
	}
	if err := iv.Begin(testNow); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if err := iv.Begin(testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second Begin to fail, got %v", err)
	}
	if iv.StartedAt == nil {
		t.Fatal("expected StartedAt to be set")
	}
	if err := iv.Cancel(testNow); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if err := iv.Cancel(testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected cancelling twice to fail, got %v", err)
	}
	if !iv.Status.Terminal() {
		t.Fatal("expected cancelled to be terminal")
	}
}

func TestAskRequiresAnsweredPrevious(t *testing.T) {
	iv := startedInterview(t)
	ask(t, iv, "q1", KindBase)

	err := iv.Ask(&Question{ID: "q2", BlockID: 1, Kind: KindBase})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	err = iv.Record("other", &Response{Answer: "x"})
	if !errors.Is(err, ErrQuestionMismatch) {
		t.Fatalf("expected ErrQuestionMismatch, got %v", err)
	}
}

func TestAskRejectsForeignBlock(t *testing.T) {
	iv := startedInterview(t)

	err := iv.Ask(&Question{ID: "q1", BlockID: 2, Kind: KindBase})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDifficultyAdapts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		start Difficulty
		score float64
		want  Difficulty
	}{
		{Medium, 9, Hard},
		{Hard, 10, Hard},
		{Medium, 3, Easy},
		{Easy, 0, Easy},
		{Medium, 6, Medium},
		{Easy, 8, Medium},
	}

	for _, tc := range cases {
		if got := adapt(tc.start, tc.score); got != tc.want {
			t.Fatalf("adapt(%s, %v) = %s, want %s", tc.start, tc.score, got, tc.want)
		}
	}
}

func TestNextMoveWalksBlocks(t *testing.T) {
	iv := startedInterview(t)

	if move := iv.NextMove(); move != MoveBase {
		t.Fatalf("expected base move, got %s", move)
	}

	ask(t, iv, "q1", KindBase)
	if move := iv.NextMove(); move != MoveNone {
		t.Fatalf("expected no move while pending, got %s", move)
	}

	answer(t, iv, "q1", 5, false)
	if move := iv.NextMove(); move != MoveFollowUp {
		t.Fatalf("expected follow up after weak answer, got %s", move)
	}

	ask(t, iv, "q1-f", KindFollowUp)
	answer(t, iv, "q1-f", 3, false)
	if move := iv.NextMove(); move != MoveBase {
		t.Fatalf("expected base move once follow ups are used up, got %s", move)
	}

	ask(t, iv, "q2", KindBase)
	answer(t, iv, "q2", 9, false)
	if move := iv.NextMove(); move != MoveCloseBlock {
		t.Fatalf("expected close block, got %s", move)
	}

	progress, err := iv.AdvanceBlock("basics summary", testNow)
	if err != nil {
		t.Fatalf("AdvanceBlock returned error: %v", err)
	}
	if !progress.Completed || progress.Answered != 3 || progress.Summary != "basics summary" {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	ask(t, iv, "q3", KindBase)
	answer(t, iv, "q3", 7, true)
	if move := iv.NextMove(); move != MoveFollowUp {
		t.Fatalf("expected follow up when the model asks for one, got %s", move)
	}
	ask(t, iv, "q3-f", KindFollowUp)
	answer(t, iv, "q3-f", 7, false)
	ask(t, iv, "q4", KindBase)
	answer(t, iv, "q4", 7, false)

	if move := iv.NextMove(); move != MoveCloseBlock {
		t.Fatalf("expected close block, got %s", move)
	}
	if _, err := iv.AdvanceBlock("", testNow); err != nil {
		t.Fatalf("AdvanceBlock returned error: %v", err)
	}
	if move := iv.NextMove(); move != MoveFinish {
		t.Fatalf("expected finish, got %s", move)
	}
	if _, err := iv.AdvanceBlock("", testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected error closing past the last block, got %v", err)
	}

	if got := iv.Summaries(); len(got) != 1 || got[0] != "basics summary" {
		t.Fatalf("unexpected summaries: %v", got)
	}
}

func TestSkippedAnswerNeverTriggersFollowUp(t *testing.T) {
	iv := startedInterview(t)
	ask(t, iv, "q1", KindBase)

	if err := iv.Record("q1", &Response{Skipped: true, Evaluation: &ai.Evaluation{}, AnsweredAt: testNow}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if move := iv.NextMove(); move != MoveBase {
		t.Fatalf("expected base move after skip, got %s", move)
	}
	if iv.Difficulty != Easy {
		t.Fatalf("expected skip to lower difficulty, got %s", iv.Difficulty)
	}
}

func TestDropPendingRestoresCounters(t *testing.T) {
	iv := startedInterview(t)
	ask(t, iv, "q1", KindBase)

	dropped := iv.DropPending()
	if dropped == nil || dropped.ID != "q1" {
		t.Fatalf("unexpected dropped question: %+v", dropped)
	}
	if iv.Progress().BaseAsked != 0 || len(iv.Questions) != 0 {
		t.Fatalf("expected counters restored, got %+v", iv.Progress())
	}
	if iv.DropPending() != nil {
		t.Fatal("expected nothing to drop")
	}
}

func TestFinishRequiresNoPendingQuestion(t *testing.T) {
	iv := startedInterview(t)
	ask(t, iv, "q1", KindBase)

	if err := iv.Finish(&Result{}, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDifficultyText(t *testing.T) {
	var d Difficulty
	if err := d.UnmarshalText([]byte("HARD")); err != nil || d != Hard {
		t.Fatalf("unexpected decode: %v %s", err, d)
	}
	if err := d.UnmarshalText([]byte("extreme")); err == nil {
		t.Fatal("expected error for unknown difficulty")
	}
	if _, err := Difficulty(7).MarshalText(); err == nil {
		t.Fatal("expected error for out of range difficulty")
	}
}
