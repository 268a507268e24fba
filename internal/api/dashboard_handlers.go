package api

import (
	"net/http"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	stats, err := s.store.DashboardStats(r.Context(), p.OrgID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleMetrics reports process-wide counters, not per organization.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
