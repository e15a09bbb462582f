package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"smartplate/internal/metrics"
	"smartplate/internal/session"
	"smartplate/pkg/types"

	"github.com/sirupsen/logrus"
)

const COOKIE_ACCESS_TOKEN_NAME = "smartplate_access_token"

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUserID      contextKey = "user_id"
	contextKeyEmail       contextKey = "email"
	contextKeyRole        contextKey = "role"
	contextKeyAccessToken contextKey = "access_token"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack passes websocket upgrades through to the underlying connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		metrics.RequestsInFlight.Inc()
		defer metrics.RequestsInFlight.Dec()

		next.ServeHTTP(rw, r)

		metrics.ObserveRequest(r.Method, rw.statusCode, started)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// WithSession makes the session manager available to every handler.
func (s *Service) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := session.WithManager(r.Context(), s.sessions)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessToken reads the token from the encrypted cookie, falling back to a
// bearer Authorization header for API clients.
func (s *Service) accessToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(COOKIE_ACCESS_TOKEN_NAME); err == nil {
		var token string
		if err := s.cookie.Decode(COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &token); err != nil {
			return "", err
		}
		return token, nil
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}

	return "", types.ErrUnauthenticated
}

// RequireAuth verifies the access token, resolves the caller's role and
// adds both to the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := s.accessToken(r)
		if err != nil {
			s.logger.WithError(err).Debug("no usable access token")
			s.writeError(w, r, types.ErrUnauthenticated)
			return
		}

		claims, err := s.tokens.Verify(ctx, token)
		if err != nil {
			s.logger.WithError(err).Info("failed to verify access token")
			s.writeError(w, r, types.ErrUnauthenticated)
			return
		}

		role, err := session.FromContext(ctx).Role(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, types.ErrRoleNotFound) || errors.Is(err, types.ErrUserNotFound) {
				s.writeError(w, r, types.ErrForbidden)
				return
			}
			s.writeError(w, r, err)
			return
		}

		ctx = context.WithValue(ctx, contextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, contextKeyRole, role)
		ctx = context.WithValue(ctx, contextKeyAccessToken, token)
		if claims.Email != "" {
			ctx = context.WithValue(ctx, contextKeyEmail, claims.Email)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": claims.UserID,
			"role":    role,
		}).Debug("authenticated user")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose role is not one of roles. It must run
// after RequireAuth.
func (s *Service) RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromContext(r.Context())
			if !slices.Contains(roles, actor.Role) {
				s.writeError(w, r, types.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func actorFromContext(ctx context.Context) types.Actor {
	userID, _ := ctx.Value(contextKeyUserID).(string)
	role, _ := ctx.Value(contextKeyRole).(types.Role)
	return types.Actor{UserID: userID, Role: role}
}

func emailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(contextKeyEmail).(string)
	return email
}

func accessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextKeyAccessToken).(string)
	return token
}
