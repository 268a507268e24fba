package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/logger"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/screening"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

type jobRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Level       *string  `json:"level"`
	Skills      []string `json:"skills"`
	Status      *string  `json:"status"`
}

func (req *jobRequest) apply(job *hiring.Job) error {
	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.Level != nil {
		job.Level = strings.TrimSpace(*req.Level)
	}
	if req.Skills != nil {
		job.Skills = cleanList(req.Skills)
	}
	if req.Status != nil {
		switch *req.Status {
		case hiring.JobOpen, hiring.JobClosed:
			job.Status = *req.Status
		default:
			return invalid("job status must be %q or %q", hiring.JobOpen, hiring.JobClosed)
		}
	}
	if job.Title == "" {
		return invalid("missing required fields: title")
	}
	return nil
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	jobs, err := s.store.ListJobs(r.Context(), p.OrgID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": nonNil(jobs)})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req jobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	job := &hiring.Job{OrgID: p.OrgID}
	if err := req.apply(job); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	job, err := s.store.GetJob(r.Context(), p.OrgID, chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req jobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.store.GetJob(r.Context(), p.OrgID, chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.apply(job); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateJob(r.Context(), job); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type screenRequest struct {
	screening.Config
	IgnoreInterviewed bool `json:"ignore_interviewed"`
}

type screenResponse struct {
	Candidates  []*hiring.Candidate          `json:"candidates"`
	Assessments map[string]*ai.FitAssessment `json:"assessments"`
	Steps       []screening.Step             `json:"steps"`
	Filters     []screening.Status           `json:"filters"`
}

// handleScreen runs the screening pipeline over the job's candidates and
// stores fresh AI assessments on them.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	ctx := r.Context()

	var req screenRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	cfg := req.Config
	if cfg.AI != nil && cfg.AI.Enabled && cfg.AI.MinimumFitScore == 0 {
		cfg.AI.MinimumFitScore = s.minFit
	}

	job, err := s.store.GetJob(ctx, p.OrgID, chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	candidates, err := s.jobCandidates(r, job)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	previous := make(map[string]*hiring.AIAssessment, len(candidates.Items))
	for _, c := range candidates.Items {
		previous[c.ID] = c.AI
	}
	all := append([]*hiring.Candidate(nil), candidates.Items...)

	steps := screening.Default(req.IgnoreInterviewed)
	if s.matcher == nil && cfg.AI != nil && cfg.AI.Enabled {
		screening.DisableByName(steps, "ai_fit", "ai matcher is not configured")
	}

	report, err := screening.Run(ctx, &cfg, screening.Deps{
		Job:        job,
		Logger:     s.logger.With(logger.Scope{Org: p.OrgID, Job: job.ID}.Fields()...),
		Matcher:    s.matcher,
		Interviews: s.store,
		Metrics:    s.metrics,
	}, steps, candidates)
	if err != nil {
		s.writeError(w, r, invalid("%s", err.Error()))
		return
	}

	for _, c := range all {
		if c.AI == nil || c.AI == previous[c.ID] {
			continue
		}
		if err := s.store.SaveAssessment(ctx, p.OrgID, c.ID, c.AI); err != nil {
			s.logger.Warn("failed to store assessment", zap.String("candidate_id", c.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, screenResponse{
		Candidates:  nonNil(report.Candidates.Items),
		Assessments: report.Assessments,
		Steps:       nonNil(report.Steps),
		Filters:     screening.Describe(steps),
	})
}

func (s *Server) jobCandidates(r *http.Request, job *hiring.Job) (*hiring.Candidates, error) {
	const page = 100

	out := &hiring.Candidates{}
	for offset := 0; ; offset += page {
		items, err := s.store.ListCandidates(r.Context(), job.OrgID, store.CandidateFilter{
			JobID:  job.ID,
			Limit:  page,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, items...)
		if len(items) < page {
			return out, nil
		}
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
