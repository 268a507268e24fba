package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
)

type inviteRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleListTeam(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	users, err := s.store.ListUsers(r.Context(), p.OrgID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": nonNil(users)})
}

// handleInvite adds a member with an initial password chosen by the inviter.
func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required(map[string]string{"email": req.Email, "name": req.Name, "role": req.Role, "password": req.Password}); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, invalid("%s", err.Error()))
		return
	}
	if !p.Role.Outranks(role) {
		s.writeError(w, r, auth.ErrForbidden)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, invalid("%s", err.Error()))
		return
	}

	user := &auth.User{OrgID: p.OrgID, Email: req.Email, Name: strings.TrimSpace(req.Name), Role: role, PasswordHash: hash}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("team member added",
		zap.String("org_id", p.OrgID),
		zap.String("user_id", user.ID),
		zap.String("role", string(role)),
	)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, invalid("%s", err.Error()))
		return
	}

	target, err := s.store.GetUser(r.Context(), p.OrgID, chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !p.Role.Outranks(target.Role) || !p.Role.Outranks(role) {
		s.writeError(w, r, auth.ErrForbidden)
		return
	}

	if err := s.store.UpdateUserRole(r.Context(), p.OrgID, target.ID, role); err != nil {
		s.writeError(w, r, err)
		return
	}

	target.Role = role
	writeJSON(w, http.StatusOK, target)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	target, err := s.store.GetUser(r.Context(), p.OrgID, chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !p.Role.Outranks(target.Role) {
		s.writeError(w, r, auth.ErrForbidden)
		return
	}

	if err := s.store.DeleteUser(r.Context(), p.OrgID, target.ID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("team member removed", zap.String("org_id", p.OrgID), zap.String("user_id", target.ID))
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
