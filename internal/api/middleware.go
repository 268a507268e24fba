package api

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ratelimit"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_ip", clientIP(r)),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token into a principal. Websocket clients
// cannot set headers, so the events stream also accepts ?access_token=.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" && strings.HasSuffix(r.URL.Path, "/events") {
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			s.unauthorized(w, r, "missing bearer token")
			return
		}

		p, err := s.tokens.Parse(token)
		if err != nil {
			s.logger.Debug("token rejected", zap.Error(err))
			s.unauthorized(w, r, auth.ErrInvalidToken.Error())
			return
		}

		// Membership and role are read from the database on every request so
		// that removals and demotions apply before the token expires.
		user, err := s.store.GetUser(r.Context(), p.OrgID, p.UserID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.logger.Debug("token of a removed member", zap.String("user_id", p.UserID))
			s.unauthorized(w, r, auth.ErrInvalidToken.Error())
			return
		case err != nil:
			s.writeError(w, r, err)
			return
		}
		p.Role = user.Role
		p.Email = user.Email

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// unauthorized answers 401. Rejections count against the caller's address,
// the same bucket login attempts use, so token guessing is throttled.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	s.rateLimit(ipKey)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg})
	})).ServeHTTP(w, r)
}

func (s *Server) require(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.FromContext(r.Context())
			if !p.Can(perm) {
				s.logger.Debug("permission denied", zap.String("permission", string(perm)))
				writeJSON(w, http.StatusForbidden, errorBody{Error: auth.ErrForbidden.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) rateLimit(key ratelimit.KeyFunc) func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.Middleware(s.limiter, key, s.logger)
}

func ipKey(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// userKey limits authenticated callers per user and falls back to the address.
func userKey(r *http.Request) string {
	if p := auth.FromContext(r.Context()); p != nil {
		return "user:" + p.UserID
	}
	return ipKey(r)
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
