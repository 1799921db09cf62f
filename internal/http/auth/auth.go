// Package auth authenticates requests with HMAC-signed JWTs and places the
// resulting actor in the request context. Handlers always receive the actor
// explicitly; there is no ambient current user below this layer.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/http/api"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

type contextKey struct{}

// Middleware validates the bearer token and stores the actor in context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			actor, err := parseToken(token, secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(token, secret string) (order.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return order.Actor{}, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return order.Actor{}, fmt.Errorf("unexpected claims type")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return order.Actor{}, fmt.Errorf("reading subject: %w", err)
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return order.Actor{}, fmt.Errorf("parsing subject: %w", err)
	}

	roleStr, _ := claims["role"].(string)
	role := order.Role(roleStr)

	switch role {
	case order.RoleBuyer, order.RoleSeller, order.RoleDealer, order.RoleAdmin:
	default:
		return order.Actor{}, fmt.Errorf("unknown role %q", roleStr)
	}

	return order.Actor{ID: id, Role: role}, nil
}

// Actor returns the authenticated actor stored by Middleware.
func Actor(r *http.Request) (order.Actor, bool) {
	actor, ok := r.Context().Value(contextKey{}).(order.Actor)
	return actor, ok
}

// RequireAdmin rejects non-admin actors before the handler runs.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := Actor(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		if actor.Role != order.RoleAdmin {
			api.Error(w, fmt.Errorf("%w: admin only", order.ErrForbidden))
			return
		}

		next.ServeHTTP(w, r)
	})
}
