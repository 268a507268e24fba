package screening

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
)

type stubLookup struct {
	ids []string
	err error
}

func (s stubLookup) InterviewedCandidateIDs(context.Context, string, string) ([]string, error) {
	return s.ids, s.err
}

type stubMatcher struct {
	mu     sync.Mutex
	scores map[string]float64
	errs   map[string]error
	calls  int
}

func (s *stubMatcher) Evaluate(_ context.Context, candidate *hiring.Candidate, _ *hiring.Job) (*ai.FitAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if err := s.errs[candidate.ID]; err != nil {
		return nil, err
	}
	score := s.scores[candidate.ID]
	return &ai.FitAssessment{Fit: score >= 0.5, Score: score, Reason: fmt.Sprintf("score %.1f", score)}, nil
}

func testJob() *hiring.Job {
	return &hiring.Job{ID: "job-1", OrgID: "org-1", Title: "Go developer", Skills: []string{"Go", "SQL"}}
}

func testCandidates() *hiring.Candidates {
	return &hiring.Candidates{Items: []*hiring.Candidate{
		{ID: "c1", Name: "Ada", Status: hiring.StatusNew, Skills: []string{"go", "sql"}},
		{ID: "c2", Name: "Bob", Status: hiring.StatusHired, Skills: []string{"Go", "SQL"}},
		{ID: "c3", Name: "Cid", Status: hiring.StatusScreening, Skills: []string{"Go"}},
		{ID: "c4", Name: "Dee", Status: hiring.StatusNew, Skills: []string{" GO ", "Sql", "k8s"}},
		{ID: "c5", Name: "Eve", Status: hiring.StatusRejected, Skills: []string{"Go", "SQL"}},
		{ID: "c6", Name: "Fay", Status: hiring.StatusInterviewing, Skills: []string{"Go", "SQL"}},
	}}
}

func TestRunDefaultPipeline(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New()
	matcher := &stubMatcher{scores: map[string]float64{"c1": 0.6, "c4": 0.9, "c6": 0.2}}

	report, err := Run(context.Background(),
		&Config{AI: &AIConfig{Enabled: true}},
		Deps{
			Job:        testJob(),
			Logger:     zap.New(core),
			Matcher:    matcher,
			Interviews: stubLookup{ids: []string{"c6-nope"}},
			Metrics:    m,
		},
		Default(false),
		testCandidates(),
	)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	ids := report.Candidates.IDs()
	if fmt.Sprint(ids) != "[c4 c1]" {
		t.Fatalf("expected candidates ordered by score, got %v", ids)
	}
	if len(report.Assessments) != 3 || report.Assessments["c6"].Fit {
		t.Fatalf("unexpected assessments: %+v", report.Assessments)
	}
	if len(report.Steps) != 5 || report.Steps[0].Name != "status" || report.Steps[0].Dropped != 2 {
		t.Fatalf("unexpected steps: %+v", report.Steps)
	}
	if report.Steps[3].Name != "skills" || report.Steps[3].Dropped != 1 {
		t.Fatalf("expected skills step to drop c3, got %+v", report.Steps[3])
	}
	if matcher.calls != 3 {
		t.Fatalf("expected 3 matcher calls, got %d", matcher.calls)
	}
	if n := logs.FilterMessage("screening step finished").Len(); n != 5 {
		t.Fatalf("expected 5 step logs, got %d", n)
	}
	dropped := logs.FilterMessage("candidates dropped").FilterField(zap.String("filter", "status")).All()
	if len(dropped) != 1 || fmt.Sprint(dropped[0].ContextMap()["candidate_ids"]) != "[c2 c5]" {
		t.Fatalf("expected the status step to log c2 and c5, got %+v", dropped)
	}
	if snap := m.Snapshot(); snap.ScreeningsRun != 1 || snap.AICallsTotal != 3 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}
}

func TestInterviewedFilter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		ignore  bool
		lookup  InterviewLookup
		want    string
		wantErr bool
	}{
		{name: "drops interviewed", lookup: stubLookup{ids: []string{"c1", "c3"}}, want: "[c2 c4 c5 c6]"},
		{name: "ignore flag", ignore: true, want: "[c1 c2 c3 c4 c5 c6]"},
		{name: "lookup error", lookup: stubLookup{err: errors.New("db down")}, wantErr: true},
		{name: "missing lookup", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := testCandidates()
			f := NewInterviewed(tc.ignore)
			_, step, err := f.Apply(context.Background(), Deps{Job: testJob(), Logger: zap.NewNop(), Interviews: tc.lookup}, c)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fmt.Sprint(c.IDs()); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if step.Left != c.Len() || step.Initial != 6 {
				t.Fatalf("unexpected step: %+v", step)
			}
		})
	}
}

func TestSkillsFilterPartialMatch(t *testing.T) {
	c := testCandidates()
	f := NewSkills()
	if err := f.Prepare(&Config{RequiredSkills: []string{"Go", "SQL", "k8s", " "}, MinSkillMatch: 0.6}); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}

	_, step, err := f.Apply(context.Background(), Deps{Logger: zap.NewNop()}, c)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if step.Dropped != 1 || c.FindByID("c3") != nil {
		t.Fatalf("expected only c3 to be dropped, got %v", c.IDs())
	}

	if err := f.Prepare(&Config{MinSkillMatch: 2}); err == nil {
		t.Fatal("expected validation error for ratio above 1")
	}
}

func TestExcludedFilter(t *testing.T) {
	c := testCandidates()
	f := NewExcluded()
	if err := f.Prepare(&Config{ExcludeIDs: []string{" c2 ", "c9"}}); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}

	_, step, err := f.Apply(context.Background(), Deps{Logger: zap.NewNop()}, c)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if step.Dropped != 1 || c.FindByID("c2") != nil {
		t.Fatalf("unexpected result: %+v %v", step, c.IDs())
	}
}

func TestAIFitKeepsCandidatesOnError(t *testing.T) {
	c := &hiring.Candidates{Items: []*hiring.Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	matcher := &stubMatcher{
		scores: map[string]float64{"a": 0.7, "c": 0.55},
		errs:   map[string]error{"b": errors.New("quota")},
	}

	f := NewAIFit()
	if err := f.Prepare(&Config{AI: &AIConfig{Enabled: true, MinimumFitScore: 0.6, Concurrency: 2}}); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}

	_, step, err := f.Apply(context.Background(), Deps{Job: testJob(), Logger: zap.NewNop(), Matcher: matcher}, c)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if fmt.Sprint(c.IDs()) != "[a b]" || step.Dropped != 1 {
		t.Fatalf("expected a then b, got %v (%+v)", c.IDs(), step)
	}
	if b := c.FindByID("b"); b.AI == nil || b.AI.Error != "quota" {
		t.Fatalf("expected error attached to b, got %+v", b.AI)
	}
}

func TestAIFitDisabledWithoutConfig(t *testing.T) {
	steps := []Filter{NewAIFit()}
	matcher := &stubMatcher{}

	report, err := Run(context.Background(), &Config{}, Deps{Job: testJob(), Matcher: matcher}, steps, testCandidates())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if matcher.calls != 0 || report.Candidates.Len() != 6 || len(report.Steps) != 0 {
		t.Fatalf("expected ai filter to be skipped, got %d calls and %+v", matcher.calls, report.Steps)
	}

	statuses := Describe(steps)
	if statuses[0].Enabled || statuses[0].Reason == "" {
		t.Fatalf("expected disabled status with reason, got %+v", statuses[0])
	}
}

func TestRunStopsOnValidationError(t *testing.T) {
	_, err := Run(context.Background(), &Config{AI: &AIConfig{Enabled: true, MinimumFitScore: 3}}, Deps{}, Default(true), testCandidates())
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDisableByName(t *testing.T) {
	steps := Default(true)
	DisableByName(steps, "ai_fit", "no key")

	for _, status := range Describe(steps) {
		if status.Name == "ai_fit" && (status.Enabled || status.Reason != "no key") {
			t.Fatalf("unexpected ai_fit status: %+v", status)
		}
		if status.Name == "interviewed" && status.Reason == "" {
			t.Fatalf("expected interviewed status to explain ignore flag: %+v", status)
		}
	}
}

func TestRunSkipsDisabledStep(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	steps := []Filter{NewStatus(), NewSkills()}
	DisableByName(steps, "skills", "")

	report, err := Run(context.Background(), nil, Deps{Job: testJob(), Logger: zap.New(core)}, steps, testCandidates())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Steps) != 1 || report.Candidates.FindByID("c3") == nil {
		t.Fatalf("expected only the status step to run, got %+v", report.Steps)
	}

	skipped := logs.FilterMessage("screening step skipped").All()
	if len(skipped) != 1 || skipped[0].ContextMap()["reason"] != "disabled" {
		t.Fatalf("unexpected skip logs: %+v", skipped)
	}
	if got := Describe(steps); !got[0].Enabled || got[1].Enabled || got[1].Reason != "disabled" {
		t.Fatalf("unexpected statuses: %+v", got)
	}
}
