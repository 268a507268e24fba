package github

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
)

var analysisNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	user      *User
	repos     []*Repository
	languages map[string]map[string]int64
	langErr   map[string]error
	fetched   []string
}

func (f *fakeSource) GetUser(_ context.Context, login string) (*User, error) {
	if f.user == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, login)
	}
	return f.user, nil
}

func (f *fakeSource) ListRepositories(context.Context, string) ([]*Repository, error) {
	return f.repos, nil
}

func (f *fakeSource) GetLanguages(_ context.Context, fullName string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, fullName)
	if err := f.langErr[fullName]; err != nil {
		return nil, err
	}
	return f.languages[fullName], nil
}

type stubAnalyst struct {
	err error
}

func (s stubAnalyst) SummarizeProfile(_ context.Context, profile any) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("profile of %s", profile.(*Analysis).Login), nil
}

func repo(name string, stars int, fork bool, pushed time.Time, lang string) *Repository {
	return &Repository{Name: name, FullName: "octo/" + name, Stars: stars, Fork: fork, PushedAt: pushed, Language: lang}
}

func newFakeSource() *fakeSource {
	recent := analysisNow.AddDate(0, -1, 0)
	old := analysisNow.AddDate(-2, 0, 0)

	return &fakeSource{
		user: &User{Login: "octo", Name: "Octo", Followers: 15},
		repos: []*Repository{
			repo("api", 7, false, recent, "Go"),
			repo("web", 0, false, old, "TypeScript"),
			repo("fork", 100, true, recent, "C"),
			repo("cli", 0, false, recent, "Go"),
		},
		languages: map[string]map[string]int64{
			"octo/api": {"Go": 600, "Shell": 100},
			"octo/web": {"TypeScript": 300},
			"octo/cli": {"Go": 0},
		},
	}
}

func TestAnalyze(t *testing.T) {
	source := newFakeSource()
	m := metrics.New()
	a := NewAnalyzer(source, stubAnalyst{}, zap.NewNop(), m)
	a.now = func() time.Time { return analysisNow }

	res, err := a.Analyze(context.Background(), " @octo ")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if res.OwnRepos != 3 || res.ForkedRepos != 1 || res.TotalStars != 7 || res.RecentlyActive != 2 {
		t.Fatalf("unexpected totals: %+v", res)
	}
	if len(source.fetched) != 3 {
		t.Fatalf("forks must not be fetched, got %v", source.fetched)
	}
	if res.TopRepositories[0].Name != "api" || res.TopRepositories[1].Name != "cli" {
		t.Fatalf("expected repos ordered by stars then recency, got %+v", res.TopRepositories)
	}
	if res.Languages[0].Name != "Go" || res.Languages[0].Percent != 60 || len(res.Languages) != 3 {
		t.Fatalf("unexpected languages: %+v", res.Languages)
	}

	want := Score{Activity: 20, Popularity: 15, Breadth: 15, Originality: 11.3, Community: 10, Total: 71.3}
	if res.Score != want {
		t.Fatalf("unexpected score: %+v, want %+v", res.Score, want)
	}
	if res.Summary != "profile of octo" {
		t.Fatalf("unexpected summary %q", res.Summary)
	}
	if snap := m.Snapshot(); snap.AnalysesRun != 1 || snap.AICallsSuccessful != 1 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}
}

func TestAnalyzeLanguageFallbackAndSummaryFailure(t *testing.T) {
	source := newFakeSource()
	source.langErr = map[string]error{"octo/web": errors.New("boom")}

	a := NewAnalyzer(source, stubAnalyst{err: errors.New("model down")}, nil, nil)
	a.now = func() time.Time { return analysisNow }

	res, err := a.Analyze(context.Background(), "octo")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	found := false
	for _, lang := range res.Languages {
		if lang.Name == "TypeScript" && lang.Bytes == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected primary language fallback, got %+v", res.Languages)
	}
	if res.Summary != "" {
		t.Fatalf("expected empty summary, got %q", res.Summary)
	}
}

func TestAnalyzeStopsOnRateLimit(t *testing.T) {
	source := newFakeSource()
	source.langErr = map[string]error{"octo/api": ErrRateLimited}

	a := NewAnalyzer(source, nil, nil, nil)
	if _, err := a.Analyze(context.Background(), "octo"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	a := NewAnalyzer(&fakeSource{}, nil, nil, nil)

	if _, err := a.Analyze(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty login")
	}
	if _, err := a.Analyze(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScoreCaps(t *testing.T) {
	s := score(&Analysis{RecentlyActive: 50, TotalStars: 1 << 20, Followers: 1 << 20, OwnRepos: 5}, 9)

	if s.Activity != 30 || s.Popularity != 25 || s.Breadth != 20 || s.Originality != 15 || s.Community != 10 || s.Total != 100 {
		t.Fatalf("expected capped score, got %+v", s)
	}

	if empty := score(&Analysis{}, 0); empty.Total != 0 {
		t.Fatalf("expected zero score, got %+v", empty)
	}
}
