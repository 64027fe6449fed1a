package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

type ctxKey struct{}

// WithToken stores a verified token in ctx.
func WithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, ctxKey{}, tok)
}

// TokenFrom returns the verified token in ctx, if any.
func TokenFrom(ctx context.Context) (Token, bool) {
	tok, ok := ctx.Value(ctxKey{}).(Token)
	return tok, ok
}

// ActorFrom returns the authenticated actor in ctx, if any.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	tok, ok := TokenFrom(ctx)
	return tok.Actor, ok
}

// Authenticate attaches the bearer token's actor to the request context.
// Requests without an Authorization header pass through anonymously; a
// present but invalid token is rejected.
func (t *Tokens) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			unauthorized(w, "authorization header must use the Bearer scheme")
			return
		}
		tok, err := t.Verify(raw)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), tok)))
	})
}

// RequireActor rejects anonymous requests.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := TokenFrom(r.Context()); !ok {
			unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg, Code: "UNAUTHORIZED"})
}
