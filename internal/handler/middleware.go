package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
)

// Authenticator resolves a bearer token to the caller's profile.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Profile, error)
}

type contextKey string

const (
	profileKey contextKey = "profile"
	tokenKey   contextKey = "accessToken"
)

// JWTAuthMiddleware validates Bearer tokens and injects the caller's profile
// into context. Websocket upgrades may pass the token as ?access_token=
// because browsers cannot set headers on them.
func JWTAuthMiddleware(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeAuthError(w, http.StatusUnauthorized, "missing or malformed bearer token")
				return
			}

			profile, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.Warn("auth: rejected token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			observability.SetUserID(r.Context(), profile.ID)
			ctx := context.WithValue(r.Context(), profileKey, profile)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only callers holding one of roles. It must run
// after JWTAuthMiddleware.
func RequireRole(logger *zap.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.Warn("auth: role not allowed",
				zap.String("path", r.URL.Path),
				zap.String("user_id", actor.UserID),
				zap.String("role", string(actor.Role)),
			)
			writeAuthError(w, http.StatusForbidden, "forbidden: role not allowed")
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if websocket.IsWebSocketUpgrade(r) {
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, true
		}
	}
	return "", false
}

// ProfileFromContext returns the authenticated profile, or nil.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(profileKey).(*domain.Profile)
	return p
}

// ActorFromContext returns the authenticated caller. The zero Actor is
// returned outside authenticated routes.
func ActorFromContext(ctx context.Context) domain.Actor {
	p := ProfileFromContext(ctx)
	if p == nil {
		return domain.Actor{}
	}
	return domain.Actor{UserID: p.ID, Role: p.Role}
}

func accessTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
