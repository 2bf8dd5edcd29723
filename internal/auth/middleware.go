package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// Middleware rejects requests without a valid bearer access token.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := svc.ValidateAccessToken(token)
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}
			if _, err := uuid.Parse(claims.UserID); err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}

// UserID returns the authenticated user's id, or uuid.Nil when the request
// carries no identity.
func UserID(ctx context.Context) uuid.UUID {
	claims := GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
