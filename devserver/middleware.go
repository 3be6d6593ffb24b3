package devserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/devserver/loginsession"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
	"github.com/bazrganidrwst/warehouse-client/token"
	"github.com/bazrganidrwst/warehouse-client/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the authenticated caller
const ContextKeyPrincipal ContextKey = "principal"

// principal is the caller of an authenticated request.
type principal struct {
	user    *users.User
	session loginsession.Session
}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(ContextKeyPrincipal).(*principal)
	return p
}

func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if s.env == "DEV" {
			logRoute(r.Method, r.URL.Path)
		}
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("request")
	})
}

// RecoverMiddleware turns a panicking handler into a 500 and reports it.
func (s *Server) RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				obs.CapturePanic(rec)
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "Server error.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// MaintenanceMiddleware answers 503 for every request while maintenance
// mode is on.
func (s *Server) MaintenanceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.maintenance.Load() {
			writeError(w, http.StatusServiceUnavailable, msgMaintenance)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth validates the Bearer access token and that its login session
// is still alive.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		claims, err := s.tokens.Validate(raw)
		if err != nil {
			log.Debug().Err(err).Bool("revoked", errors.Is(err, token.ErrRevoked)).Str("path", r.URL.Path).Msg("access token rejected")
			writeError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		session, err := s.sessions.Get(claims.SessionID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		user, err := s.lookupUser(claims.UserID)
		if err != nil || user.Blocked {
			writeError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		if err := s.sessions.Touch(session.ID, time.Now()); err != nil {
			log.Debug().Err(err).Str("session", session.ID).Msg("touch session")
		}

		ctx := context.WithValue(r.Context(), ContextKeyPrincipal, &principal{user: user, session: session})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireType rejects callers whose account type is not listed.
func RequireType(types ...users.Type) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principalFrom(r.Context())
			for _, t := range types {
				if p != nil && p.user.Type == t {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		})
	}
}

// lookupUser returns a copy of the account so handlers can read it while
// others update the stored one under s.mu.
func (s *Server) lookupUser(id int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
