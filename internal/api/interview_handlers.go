package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/events"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/logger"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

type createInterviewRequest struct {
	CandidateID string `json:"candidate_id"`
	JobID       string `json:"job_id"`
	Template    string `json:"template"`
	Title       string `json:"title"`
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type templateInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Blocks      []string `json:"blocks"`
	PassScore   float64  `json:"pass_score"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list := s.templates.List()
	out := make([]templateInfo, 0, len(list))
	for _, tpl := range list {
		info := templateInfo{
			Name:        tpl.Name,
			Title:       tpl.Title,
			Description: tpl.Description,
			PassScore:   tpl.Config.PassScore,
		}
		for _, b := range tpl.Blocks {
			info.Blocks = append(info.Blocks, b.Title)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	q := r.URL.Query()

	list, err := s.store.ListInterviews(r.Context(), p.OrgID, store.InterviewFilter{
		CandidateID: q.Get("candidate_id"),
		JobID:       q.Get("job_id"),
		Status:      interview.Status(q.Get("status")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": nonNil(list)})
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	ctx := r.Context()

	var req createInterviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required(map[string]string{"candidate_id": req.CandidateID, "template": req.Template}); err != nil {
		s.writeError(w, r, err)
		return
	}

	tpl, err := s.templates.Get(req.Template)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.store.GetCandidate(ctx, p.OrgID, req.CandidateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.Status.Terminal() {
		s.writeError(w, r, invalid("candidate is %s", c.Status))
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = c.JobID
	}
	if jobID != "" {
		if _, err := s.store.GetJob(ctx, p.OrgID, jobID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	iv := interview.New(p.OrgID, c.ID, jobID, req.Title, tpl, s.now())
	if err := s.store.CreateInterview(ctx, iv); err != nil {
		s.writeError(w, r, err)
		return
	}

	if c.Status != hiring.StatusInterviewing && hiring.CanTransition(c.Status, hiring.StatusInterviewing) {
		c.Status = hiring.StatusInterviewing
		if err := s.store.UpdateCandidate(ctx, c); err != nil {
			s.logger.Warn("failed to move candidate to interviewing", zap.String("candidate_id", c.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, iv)
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	iv, err := s.store.GetInterview(r.Context(), p.OrgID, chi.URLParam(r, "interviewID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	s.mutateInterview(w, r, func(ctx context.Context, iv *interview.Interview) (*outcome, error) {
		q, err := s.engine.Start(ctx, iv)
		if err != nil {
			return nil, err
		}
		return &outcome{
			body: map[string]any{"interview": iv, "question": q},
			events: []events.Event{
				{Type: events.InterviewStarted, Data: map[string]any{"template": iv.Template.Name}},
				{Type: events.QuestionAsked, Data: q},
			},
		}, nil
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required(map[string]string{"question_id": req.QuestionID}); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mutateInterview(w, r, func(ctx context.Context, iv *interview.Interview) (*outcome, error) {
		step, err := s.engine.Answer(ctx, iv, req.QuestionID, req.Answer)
		return stepOutcome(step), err
	})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required(map[string]string{"question_id": req.QuestionID}); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mutateInterview(w, r, func(ctx context.Context, iv *interview.Interview) (*outcome, error) {
		step, err := s.engine.Skip(ctx, iv, req.QuestionID)
		return stepOutcome(step), err
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mutateInterview(w, r, func(ctx context.Context, iv *interview.Interview) (*outcome, error) {
		step, err := s.engine.Next(ctx, iv)
		if err != nil && step != nil {
			// blocks closed before the failure are kept
			return stepOutcome(step), errors.Join(interview.ErrAdvance, err)
		}
		return stepOutcome(step), err
	})
}

func (s *Server) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	s.mutateInterview(w, r, func(ctx context.Context, iv *interview.Interview) (*outcome, error) {
		result, err := s.engine.Complete(ctx, iv)
		if err != nil {
			return nil, err
		}
		return &outcome{
			body:   map[string]any{"interview": iv, "result": result},
			events: []events.Event{{Type: events.InterviewCompleted, Data: result}},
		}, nil
	})
}

func (s *Server) handleCancelInterview(w http.ResponseWriter, r *http.Request) {
	s.mutateInterview(w, r, func(_ context.Context, iv *interview.Interview) (*outcome, error) {
		if err := s.engine.Cancel(iv); err != nil {
			return nil, err
		}
		return &outcome{body: iv, events: []events.Event{{Type: events.InterviewCancelled}}}, nil
	})
}

func (s *Server) handleInterviewEvents(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "event stream is not configured"})
		return
	}

	iv, err := s.store.GetInterview(r.Context(), p.OrgID, chi.URLParam(r, "interviewID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.ServeWS(w, r, iv.ID)
}

// outcome is the response body of an interview operation and the events to
// publish once the new state is saved.
type outcome struct {
	body   any
	events []events.Event
}

// mutateInterview loads the interview, applies fn and saves the new state
// with an optimistic version check. Errors other than ErrAdvance mean the
// interview was not changed and nothing is saved.
func (s *Server) mutateInterview(w http.ResponseWriter, r *http.Request, fn func(context.Context, *interview.Interview) (*outcome, error)) {
	p := auth.FromContext(r.Context())
	ctx := r.Context()

	iv, err := s.store.GetInterview(ctx, p.OrgID, chi.URLParam(r, "interviewID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := fn(ctx, iv)
	advanceErr := errors.Is(err, interview.ErrAdvance)
	if err != nil && !advanceErr {
		s.writeError(w, r, err)
		return
	}

	if saveErr := s.store.SaveInterview(ctx, iv); saveErr != nil {
		s.writeError(w, r, saveErr)
		return
	}

	if out == nil {
		out = &outcome{}
	}
	for _, ev := range out.events {
		s.events.Publish(iv.ID, ev)
	}

	if advanceErr {
		s.logger.Warn("interview could not advance",
			append(logger.Scope{Org: iv.OrgID, Interview: iv.ID}.Fields(), zap.Error(err))...)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Step: out.body})
		return
	}
	writeJSON(w, http.StatusOK, out.body)
}

func stepOutcome(step *interview.Step) *outcome {
	if step == nil {
		return nil
	}

	out := &outcome{body: step}
	if step.Evaluation != nil && step.Question != nil {
		out.events = append(out.events, events.Event{Type: events.AnswerEvaluated, Data: map[string]any{
			"question_id": step.Question.ID,
			"evaluation":  step.Evaluation,
		}})
	}
	for _, b := range step.CompletedBlocks {
		out.events = append(out.events, events.Event{Type: events.BlockCompleted, Data: b})
	}
	if step.Next != nil {
		out.events = append(out.events, events.Event{Type: events.QuestionAsked, Data: step.Next})
	}
	if step.Completed {
		out.events = append(out.events, events.Event{Type: events.InterviewCompleted, Data: step.Result})
	}
	return out
}
