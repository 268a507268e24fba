package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/github"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

const maxBodyBytes = 1 << 20

// validationError is a client mistake reported as 422.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
	Step  any    `json:"step,omitempty"`
}

// writeError maps err to a status code. Unknown errors are logged and hidden.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := s.classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) classify(err error) (int, string) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.msg
	case errors.Is(err, store.ErrNotFound), errors.Is(err, github.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "already exists"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "resource was modified concurrently, reload and retry"
	case errors.Is(err, store.ErrLastOwner):
		return http.StatusConflict, store.ErrLastOwner.Error()
	case errors.Is(err, interview.ErrInvalidTransition), errors.Is(err, interview.ErrQuestionMismatch):
		return http.StatusConflict, err.Error()
	case errors.Is(err, interview.ErrEmptyAnswer), errors.Is(err, interview.ErrAnswerTooLong),
		errors.Is(err, interview.ErrTemplateNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, unwrapFirst(err)
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, auth.ErrForbidden.Error()
	case errors.Is(err, github.ErrRateLimited):
		return http.StatusTooManyRequests, github.ErrRateLimited.Error()
	case errors.Is(err, interview.ErrAdvance), errors.Is(err, interview.ErrModel):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// unwrapFirst hides token parser details from clients.
func unwrapFirst(err error) string {
	if errors.Is(err, auth.ErrInvalidToken) {
		return auth.ErrInvalidToken.Error()
	}
	return auth.ErrInvalidCredentials.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return invalid("request body is too large")
		case errors.Is(err, io.EOF):
			return invalid("request body is required")
		default:
			return invalid("malformed request body: %s", err.Error())
		}
	}
	if dec.More() {
		return invalid("request body must contain a single JSON object")
	}
	return nil
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return invalid("missing required fields: %s", strings.Join(missing, ", "))
}
