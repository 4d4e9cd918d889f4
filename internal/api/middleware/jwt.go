// Package middleware holds the HTTP middleware for the control API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

// operatorKey is the context key for the authenticated operator.
const operatorKey contextKey = "operator"

// tokenTTL is the lifetime of an operator JWT token.
const tokenTTL = 24 * time.Hour

// OperatorClaims holds the JWT claims for control API authentication.
type OperatorClaims struct {
	Operator string `json:"op"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for an operator login.
func GenerateToken(secret []byte, operator string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tokenTTL)

	claims := OperatorClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "callgrid",
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// RequireAuth returns middleware that validates JWT bearer tokens. On
// success it stores the operator name in the request context.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				replyError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				replyError(w, r, http.StatusUnauthorized, "unauthenticated", "invalid authorization header")
				return
			}

			claims := &OperatorClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				slog.Debug("api auth: invalid jwt", "error", err)
				replyError(w, r, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			}

			if claims.Operator == "" {
				replyError(w, r, http.StatusUnauthorized, "unauthenticated", "invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), operatorKey, claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorFromContext retrieves the authenticated operator name from
// the request context. Returns "" if not set.
func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey).(string)
	return op
}
