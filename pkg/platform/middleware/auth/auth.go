// Package auth resolves the acting identity for audit records.
//
// The tool historically ran behind a trusted network with a fixed "admin"
// identity. When a JWT signing key is configured, requests must instead carry
// a bearer token and the token subject becomes the audit actor.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "remail/pkg/domain-errors"
	"remail/pkg/platform/httputil"
	"remail/pkg/requestcontext"
)

// DefaultActor is recorded when no authentication is configured.
const DefaultActor = "admin"

// Actor returns middleware that injects the acting identity into the request
// context. With an empty signing key every request acts as DefaultActor.
func Actor(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if signingKey == "" {
				ctx := requestcontext.WithActor(r.Context(), DefaultActor)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			subject, err := validateToken(token, signingKey)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			ctx = requestcontext.WithActor(ctx, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateToken parses an HS256 token and returns its subject claim.
func validateToken(tokenString, signingKey string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenRequiredClaimMissing
	}
	return claims.Subject, nil
}
