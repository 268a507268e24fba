package github

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
)

const (
	topRepositories  = 10
	languageFetchers = 4
	topLanguages     = 5
	recentWindow     = 180 * 24 * time.Hour
)

// Source is the subset of the GitHub API the analyzer needs.
type Source interface {
	GetUser(ctx context.Context, login string) (*User, error)
	ListRepositories(ctx context.Context, login string) ([]*Repository, error)
	GetLanguages(ctx context.Context, fullName string) (map[string]int64, error)
}

type LanguageShare struct {
	Name    string  `json:"name"`
	Bytes   int64   `json:"bytes"`
	Percent float64 `json:"percent"`
}

type RepositorySummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	URL         string    `json:"url"`
	PushedAt    time.Time `json:"pushed_at"`
}

// Score is a 0-100 rating split by signal. Each component is capped.
type Score struct {
	Activity    float64 `json:"activity"`    // up to 30
	Popularity  float64 `json:"popularity"`  // up to 25
	Breadth     float64 `json:"breadth"`     // up to 20
	Originality float64 `json:"originality"` // up to 15
	Community   float64 `json:"community"`   // up to 10
	Total       float64 `json:"total"`
}

type Analysis struct {
	Login           string              `json:"login"`
	Name            string              `json:"name,omitempty"`
	Bio             string              `json:"bio,omitempty"`
	Company         string              `json:"company,omitempty"`
	Location        string              `json:"location,omitempty"`
	ProfileURL      string              `json:"profile_url"`
	Followers       int                 `json:"followers"`
	AccountCreated  time.Time           `json:"account_created"`
	OwnRepos        int                 `json:"own_repos"`
	ForkedRepos     int                 `json:"forked_repos"`
	TotalStars      int                 `json:"total_stars"`
	TotalForks      int                 `json:"total_forks"`
	RecentlyActive  int                 `json:"recently_active"`
	Languages       []LanguageShare     `json:"languages"`
	TopRepositories []RepositorySummary `json:"top_repositories"`
	Score           Score               `json:"score"`
	Summary         string              `json:"summary,omitempty"`
	AnalyzedAt      time.Time           `json:"analyzed_at"`
}

type Analyzer struct {
	source  Source
	analyst ai.Analyst
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAnalyzer builds an analyzer. analyst may be nil, in which case no
// narrative summary is produced.
func NewAnalyzer(source Source, analyst ai.Analyst, logger *zap.Logger, m *metrics.Metrics) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{source: source, analyst: analyst, logger: logger, metrics: m, now: time.Now}
}

// Analyze fetches the profile and repositories of login and scores them.
func (a *Analyzer) Analyze(ctx context.Context, login string) (*Analysis, error) {
	login = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(login), "@"))
	if login == "" {
		return nil, errors.New("github login is required")
	}

	user, err := a.source.GetUser(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", login, err)
	}

	repos, err := a.source.ListRepositories(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("list repositories of %s: %w", login, err)
	}

	now := a.now()
	res := &Analysis{
		Login:          user.Login,
		Name:           user.Name,
		Bio:            user.Bio,
		Company:        user.Company,
		Location:       user.Location,
		ProfileURL:     user.HTMLURL,
		Followers:      user.Followers,
		AccountCreated: user.CreatedAt,
		AnalyzedAt:     now,
	}

	var own []*Repository
	for _, repo := range repos {
		if repo.Fork {
			res.ForkedRepos++
			continue
		}
		own = append(own, repo)
		res.OwnRepos++
		res.TotalStars += repo.Stars
		res.TotalForks += repo.Forks
		if !repo.PushedAt.IsZero() && now.Sub(repo.PushedAt) <= recentWindow {
			res.RecentlyActive++
		}
	}

	slices.SortStableFunc(own, func(x, y *Repository) int {
		if c := cmp.Compare(y.Stars, x.Stars); c != 0 {
			return c
		}
		return y.PushedAt.Compare(x.PushedAt)
	})
	if len(own) > topRepositories {
		own = own[:topRepositories]
	}

	for _, repo := range own {
		res.TopRepositories = append(res.TopRepositories, RepositorySummary{
			Name:        repo.Name,
			Description: repo.Description,
			Language:    repo.Language,
			Stars:       repo.Stars,
			Forks:       repo.Forks,
			URL:         repo.HTMLURL,
			PushedAt:    repo.PushedAt,
		})
	}

	langs, err := a.languages(ctx, own)
	if err != nil {
		return nil, err
	}
	res.Languages = langs
	res.Score = score(res, len(langs))

	if a.analyst != nil {
		summary, err := a.analyst.SummarizeProfile(ctx, res)
		a.metrics.IncrementAICall(err == nil)
		if err != nil {
			a.logger.Warn("github profile summary failed", zap.String("login", login), zap.Error(err))
		} else {
			res.Summary = summary
		}
	}

	a.metrics.IncrementAnalyses()
	a.logger.Info("github profile analysed",
		zap.String("login", login),
		zap.Int("own_repos", res.OwnRepos),
		zap.Int("stars", res.TotalStars),
		zap.Float64("score", res.Score.Total),
	)

	return res, nil
}

// languages sums language bytes over repos, fetching concurrently. A repo whose
// languages cannot be fetched falls back to its primary language.
func (a *Analyzer) languages(ctx context.Context, repos []*Repository) ([]LanguageShare, error) {
	var mu sync.Mutex
	totals := make(map[string]int64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(languageFetchers)
	for _, repo := range repos {
		g.Go(func() error {
			langs, err := a.source.GetLanguages(gctx, repo.FullName)
			if err != nil {
				if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
					return err
				}
				a.logger.Debug("fetching languages failed", zap.String("repo", repo.FullName), zap.Error(err))
				if repo.Language != "" {
					langs = map[string]int64{repo.Language: 1}
				}
			}

			mu.Lock()
			defer mu.Unlock()
			for name, bytes := range langs {
				totals[name] += bytes
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch languages: %w", err)
	}

	var sum int64
	shares := make([]LanguageShare, 0, len(totals))
	for name, bytes := range totals {
		sum += bytes
		shares = append(shares, LanguageShare{Name: name, Bytes: bytes})
	}
	for i := range shares {
		if sum == 0 {
			break
		}
		shares[i].Percent = round1(float64(shares[i].Bytes) * 100 / float64(sum))
	}

	slices.SortFunc(shares, func(x, y LanguageShare) int {
		if c := cmp.Compare(y.Bytes, x.Bytes); c != 0 {
			return c
		}
		return strings.Compare(x.Name, y.Name)
	})
	if len(shares) > topLanguages {
		shares = shares[:topLanguages]
	}
	return shares, nil
}

func score(res *Analysis, languages int) Score {
	s := Score{
		Activity:   math.Min(30, float64(res.RecentlyActive)*10),
		Popularity: math.Min(25, math.Log2(float64(res.TotalStars)+1)*5),
		Breadth:    math.Min(20, float64(languages)*5),
		Community:  math.Min(10, math.Log2(float64(res.Followers)+1)*2.5),
	}
	if total := res.OwnRepos + res.ForkedRepos; total > 0 {
		s.Originality = 15 * float64(res.OwnRepos) / float64(total)
	}

	s.Activity = round1(s.Activity)
	s.Popularity = round1(s.Popularity)
	s.Breadth = round1(s.Breadth)
	s.Originality = round1(s.Originality)
	s.Community = round1(s.Community)
	s.Total = round1(s.Activity + s.Popularity + s.Breadth + s.Originality + s.Community)
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
