package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/hiring"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

type registerRequest struct {
	Organization string `json:"organization"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token        string               `json:"token"`
	ExpiresAt    time.Time            `json:"expires_at"`
	User         *auth.User           `json:"user"`
	Organization *hiring.Organization `json:"organization,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required(map[string]string{
		"organization": req.Organization,
		"name":         req.Name,
		"email":        req.Email,
		"password":     req.Password,
	}); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !strings.Contains(req.Email, "@") {
		s.writeError(w, r, invalid("email is invalid"))
		return
	}

	slug := slugify(req.Slug)
	if slug == "" {
		slug = slugify(req.Organization)
	}
	if slug == "" {
		s.writeError(w, r, invalid("organization slug is invalid"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, invalid("%s", err.Error()))
		return
	}

	org := &hiring.Organization{Name: strings.TrimSpace(req.Organization), Slug: slug}
	owner := &auth.User{Email: req.Email, Name: strings.TrimSpace(req.Name), PasswordHash: hash}
	if err := s.store.CreateOrganization(r.Context(), org, owner); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("organization registered", zap.String("org_id", org.ID), zap.String("slug", org.Slug))
	s.respondToken(w, r, http.StatusCreated, owner, org)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// keep the response time close to a real password check
		_ = auth.CheckPassword(req.Password, dummyHash())
		s.writeError(w, r, auth.ErrInvalidCredentials)
		return
	case err != nil:
		s.writeError(w, r, err)
		return
	}

	if err := auth.CheckPassword(req.Password, user.PasswordHash); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondToken(w, r, http.StatusOK, user, nil)
}

func (s *Server) respondToken(w http.ResponseWriter, r *http.Request, status int, user *auth.User, org *hiring.Organization) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: token, ExpiresAt: expires, User: user, Organization: org})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	user, err := s.store.GetUser(r.Context(), p.OrgID, p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	org, err := s.store.GetOrganization(r.Context(), p.OrgID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "organization": org})
}

func slugify(s string) string {
	s = slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "-")
	}
	return s
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = auth.HashPassword("not-a-real-password")
	})
	return dummy
}
