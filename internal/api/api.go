// Package api exposes the hiring workflow over a JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/events"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/github"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ratelimit"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

// Store is the persistence the API needs; *store.Store implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateOrganization(ctx context.Context, org *hiring.Organization, owner *auth.User) error
	GetOrganization(ctx context.Context, id string) (*hiring.Organization, error)
	CreateUser(ctx context.Context, user *auth.User) error
	GetUser(ctx context.Context, orgID, id string) (*auth.User, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	ListUsers(ctx context.Context, orgID string) ([]*auth.User, error)
	UpdateUserRole(ctx context.Context, orgID, userID string, role auth.Role) error
	DeleteUser(ctx context.Context, orgID, userID string) error

	CreateJob(ctx context.Context, job *hiring.Job) error
	UpdateJob(ctx context.Context, job *hiring.Job) error
	GetJob(ctx context.Context, orgID, id string) (*hiring.Job, error)
	ListJobs(ctx context.Context, orgID string) ([]*hiring.Job, error)

	CreateCandidate(ctx context.Context, c *hiring.Candidate) error
	UpdateCandidate(ctx context.Context, c *hiring.Candidate) error
	SaveAssessment(ctx context.Context, orgID, candidateID string, a *hiring.AIAssessment) error
	GetCandidate(ctx context.Context, orgID, id string) (*hiring.Candidate, error)
	ListCandidates(ctx context.Context, orgID string, f store.CandidateFilter) ([]*hiring.Candidate, error)
	DeleteCandidate(ctx context.Context, orgID, id string) error

	CreateInterview(ctx context.Context, iv *interview.Interview) error
	SaveInterview(ctx context.Context, iv *interview.Interview) error
	GetInterview(ctx context.Context, orgID, id string) (*interview.Interview, error)
	ListInterviews(ctx context.Context, orgID string, f store.InterviewFilter) ([]*interview.Interview, error)
	InterviewedCandidateIDs(ctx context.Context, orgID, jobID string) ([]string, error)

	SaveAnalysis(ctx context.Context, orgID, candidateID string, a *github.Analysis) error
	GetAnalysis(ctx context.Context, orgID, candidateID string) (*github.Analysis, error)

	DashboardStats(ctx context.Context, orgID string) (*store.Dashboard, error)
}

// Analyzer produces GitHub analyses; *github.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, login string) (*github.Analysis, error)
}

// Deps wires the server. Matcher, Analyzer, Limiter and Events are optional.
type Deps struct {
	Store     Store
	Engine    *interview.Engine
	Templates *interview.Registry
	Tokens    *auth.TokenManager
	Matcher   ai.Matcher
	Analyzer  Analyzer
	Limiter   ratelimit.RateLimiter
	Events    *events.Hub
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	// MinimumFitScore is the default AI screening threshold.
	MinimumFitScore float64
}

type Server struct {
	store     Store
	engine    *interview.Engine
	templates *interview.Registry
	tokens    *auth.TokenManager
	matcher   ai.Matcher
	analyzer  Analyzer
	limiter   ratelimit.RateLimiter
	events    events.Publisher
	hub       *events.Hub
	metrics   *metrics.Metrics
	logger    *zap.Logger
	minFit    float64
	now       func() time.Time
}

func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		store:     deps.Store,
		engine:    deps.Engine,
		templates: deps.Templates,
		tokens:    deps.Tokens,
		matcher:   deps.Matcher,
		analyzer:  deps.Analyzer,
		limiter:   deps.Limiter,
		hub:       deps.Events,
		metrics:   deps.Metrics,
		logger:    log.Named("api"),
		minFit:    deps.MinimumFitScore,
		now:       time.Now,
	}
	if deps.Events != nil {
		s.events = deps.Events
	} else {
		s.events = nopPublisher{}
	}
	return s
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, events.Event) {}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit(ipKey))
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Use(s.rateLimit(userKey))

			r.Get("/me", s.handleMe)
			r.Get("/templates", s.handleListTemplates)
			r.With(s.require(auth.CandidatesRead)).Get("/dashboard", s.handleDashboard)
			r.With(s.require(auth.MetricsRead)).Get("/metrics", s.handleMetrics)

			r.Route("/team", func(r chi.Router) {
				r.With(s.require(auth.TeamRead)).Get("/", s.handleListTeam)
				r.Group(func(r chi.Router) {
					r.Use(s.require(auth.TeamManage))
					r.Post("/", s.handleInvite)
					r.Patch("/{userID}", s.handleChangeRole)
					r.Delete("/{userID}", s.handleRemoveMember)
				})
			})

			r.Route("/jobs", func(r chi.Router) {
				r.With(s.require(auth.JobsRead)).Get("/", s.handleListJobs)
				r.With(s.require(auth.JobsWrite)).Post("/", s.handleCreateJob)
				r.With(s.require(auth.JobsRead)).Get("/{jobID}", s.handleGetJob)
				r.With(s.require(auth.JobsWrite)).Patch("/{jobID}", s.handleUpdateJob)
				r.With(s.require(auth.CandidatesScreen)).Post("/{jobID}/screen", s.handleScreen)
			})

			r.Route("/candidates", func(r chi.Router) {
				r.With(s.require(auth.CandidatesRead)).Get("/", s.handleListCandidates)
				r.With(s.require(auth.CandidatesWrite)).Post("/", s.handleCreateCandidate)
				r.With(s.require(auth.CandidatesRead)).Get("/{candidateID}", s.handleGetCandidate)
				r.With(s.require(auth.CandidatesWrite)).Patch("/{candidateID}", s.handleUpdateCandidate)
				r.With(s.require(auth.CandidatesDelete)).Delete("/{candidateID}", s.handleDeleteCandidate)
				r.With(s.require(auth.CandidatesWrite)).Post("/{candidateID}/github", s.handleAnalyzeGitHub)
				r.With(s.require(auth.CandidatesRead)).Get("/{candidateID}/github", s.handleGetGitHub)
			})

			r.Route("/interviews", func(r chi.Router) {
				r.With(s.require(auth.InterviewsRead)).Get("/", s.handleListInterviews)
				r.With(s.require(auth.InterviewsManage)).Post("/", s.handleCreateInterview)
				r.Route("/{interviewID}", func(r chi.Router) {
					r.With(s.require(auth.InterviewsRead)).Get("/", s.handleGetInterview)
					r.With(s.require(auth.InterviewsRead)).Get("/events", s.handleInterviewEvents)
					r.With(s.require(auth.InterviewsManage)).Post("/cancel", s.handleCancelInterview)
					r.Group(func(r chi.Router) {
						r.Use(s.require(auth.InterviewsConduct))
						r.Post("/start", s.handleStartInterview)
						r.Post("/answer", s.handleAnswer)
						r.Post("/skip", s.handleSkip)
						r.Post("/next", s.handleNext)
						r.Post("/complete", s.handleCompleteInterview)
					})
				})
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
