// Package middleware provides various middleware functionality.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danilovkiri/dk-go-panel/internal/api/rest/httputil"
	"github.com/danilovkiri/dk-go-panel/internal/service/secretary/v1"
	"github.com/rs/zerolog"
)

type usernameKey struct{}

// WithUsername returns a copy of ctx carrying the authenticated username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

// GetUsername returns the authenticated username or an empty string.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey{}).(string)
	return username
}

// TokenHandler sets object structure.
type TokenHandler struct {
	sec secretary.Secretary
	log *zerolog.Logger
}

// NewTokenHandler initializes a new token handler.
func NewTokenHandler(sec secretary.Secretary, log *zerolog.Logger) (*TokenHandler, error) {
	if sec == nil {
		return nil, errors.New("nil secretary object was found")
	}
	return &TokenHandler{
		sec: sec,
		log: log,
	}, nil
}

// TokenHandle rejects requests without a valid session token and stores the
// token's username in the request context.
func (c *TokenHandler) TokenHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.TrimSpace(r.Header.Get("Authorization"))
		tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
		if len(tokenString) == 0 {
			httputil.WriteError(w, http.StatusUnauthorized, "no token provided")
			return
		}
		username, err := c.sec.ValidateToken(tokenString)
		if err != nil {
			c.log.Debug().Err(err).Msg("token validation failed")
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}

// AdminHandle lets through only configured administrators. It must run after TokenHandle.
func (c *TokenHandler) AdminHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := GetUsername(r.Context())
		if username == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "no token provided")
			return
		}
		if !c.sec.IsAdmin(username) {
			c.log.Warn().Str("username", username).Str("path", r.URL.Path).Msg("admin route forbidden")
			httputil.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
