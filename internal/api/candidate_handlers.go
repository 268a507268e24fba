package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

type candidateRequest struct {
	JobID           *string  `json:"job_id"`
	Name            *string  `json:"name"`
	Email           *string  `json:"email"`
	GitHubUsername  *string  `json:"github_username"`
	Location        *string  `json:"location"`
	Resume          *string  `json:"resume"`
	Skills          []string `json:"skills"`
	ExperienceYears *int     `json:"experience_years"`
	Status          *string  `json:"status"`
	Source          *string  `json:"source"`
	Notes           *string  `json:"notes"`
}

// apply copies the provided fields. Status changes must follow the pipeline.
func (req *candidateRequest) apply(c *hiring.Candidate) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.JobID, req.JobID)
	set(&c.Name, req.Name)
	set(&c.Email, req.Email)
	set(&c.GitHubUsername, req.GitHubUsername)
	set(&c.Location, req.Location)
	set(&c.Source, req.Source)
	if req.Resume != nil {
		c.Resume = *req.Resume
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	if req.Skills != nil {
		c.Skills = cleanList(req.Skills)
	}
	if req.ExperienceYears != nil {
		if *req.ExperienceYears < 0 || *req.ExperienceYears > 80 {
			return invalid("experience_years must be between 0 and 80")
		}
		c.ExperienceYears = *req.ExperienceYears
	}
	c.GitHubUsername = strings.TrimPrefix(c.GitHubUsername, "@")

	if req.Status != nil {
		to, err := hiring.ParseStatus(*req.Status)
		if err != nil {
			return invalid("%s", err.Error())
		}
		if to != c.Status {
			if c.Status != "" && !hiring.CanTransition(c.Status, to) {
				return invalid("candidate cannot move from %s to %s", c.Status, to)
			}
			c.Status = to
		}
	}

	if err := required(map[string]string{"name": c.Name, "email": c.Email}); err != nil {
		return err
	}
	if !strings.Contains(c.Email, "@") {
		return invalid("email is invalid")
	}
	return nil
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	q := r.URL.Query()

	f := store.CandidateFilter{JobID: q.Get("job_id")}
	if v := q.Get("status"); v != "" {
		st, err := hiring.ParseStatus(v)
		if err != nil {
			s.writeError(w, r, invalid("%s", err.Error()))
			return
		}
		f.Status = st
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				s.writeError(w, r, invalid("%s must be a non-negative integer", name))
				return
			}
			*dst = n
		}
	}

	items, err := s.store.ListCandidates(r.Context(), p.OrgID, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	c := &hiring.Candidates{Items: items}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": nonNil(items),
		"by_status":  c.ReportByStatus(),
	})
}

func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req candidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	c := &hiring.Candidate{OrgID: p.OrgID}
	if err := req.apply(c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.JobID != "" {
		if _, err := s.store.GetJob(r.Context(), p.OrgID, c.JobID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if err := s.store.CreateCandidate(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	c, err := s.store.GetCandidate(r.Context(), p.OrgID, chi.URLParam(r, "candidateID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req candidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.store.GetCandidate(r.Context(), p.OrgID, chi.URLParam(r, "candidateID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from := c.Status
	jobID := c.JobID

	if err := req.apply(c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.JobID != "" && c.JobID != jobID {
		if _, err := s.store.GetJob(r.Context(), p.OrgID, c.JobID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if err := s.store.UpdateCandidate(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}

	if from != c.Status {
		s.logger.Info("candidate status changed",
			zap.String("candidate_id", c.ID),
			zap.String("from", string(from)),
			zap.String("to", string(c.Status)),
		)
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	if err := s.store.DeleteCandidate(r.Context(), p.OrgID, chi.URLParam(r, "candidateID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalyzeGitHub(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	if s.analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "github analysis is not configured"})
		return
	}

	c, err := s.store.GetCandidate(r.Context(), p.OrgID, chi.URLParam(r, "candidateID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.GitHubUsername == "" {
		s.writeError(w, r, invalid("candidate has no github_username"))
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), c.GitHubUsername)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SaveAnalysis(r.Context(), p.OrgID, c.ID, analysis); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleGetGitHub(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	analysis, err := s.store.GetAnalysis(r.Context(), p.OrgID, chi.URLParam(r, "candidateID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
