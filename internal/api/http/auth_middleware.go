package http

import (
	"context"
	"net/http"
	"strings"

	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/security"

	"github.com/gorilla/mux"
)

type actorKey struct{}

// ActorFromContext returns the authenticated actor placed by AuthMiddleware.
func ActorFromContext(ctx context.Context) (*security.ActorClaims, bool) {
	claims, ok := ctx.Value(actorKey{}).(*security.ActorClaims)
	return claims, ok && claims != nil
}

func withActor(ctx context.Context, claims *security.ActorClaims) context.Context {
	return context.WithValue(ctx, actorKey{}, claims)
}

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Handler authenticates and authorizes requests by the matched route's name.
// A token only acts inside the guild it was issued for.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routeName := ""
		if route := mux.CurrentRoute(r); route != nil {
			routeName = route.GetName()
		}
		level := config.GetSecurityLevel(routeName)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization token is not provided")
			return
		}

		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}

		if guildID := mux.Vars(r)["guildID"]; guildID != "" && guildID != claims.GuildID {
			logger.Warn("Token used outside its guild", "route", routeName, "token_guild", claims.GuildID, "path_guild", guildID, "user_id", claims.UserID)
			writeError(w, http.StatusForbidden, "token is not valid for this guild")
			return
		}

		if level == config.SecurityModerator && !claims.IsModerator() {
			writeError(w, http.StatusForbidden, "moderator role required")
			return
		}

		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), claims)))
	})
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token := header
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
