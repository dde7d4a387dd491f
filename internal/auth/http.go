// ABOUTME: HTTP middleware resolving credentials to an active principal
// ABOUTME: Accepts a bearer JWT or an API key header; admin routes require admin type

package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bootgate/bootgate/internal/store"
)

// PrincipalStore is the persistence surface for principal resolution.
type PrincipalStore interface {
	KeyStore
	GetPrincipal(ctx context.Context, id string) (*store.Principal, error)
	GetPrincipalByAuthSubject(ctx context.Context, authSubject string) (*store.Principal, error)
}

// Authenticator authenticates incoming requests. Bearer JWTs are resolved by
// auth subject; API keys by key ID and bcrypt comparison. Either way the
// resolved principal must be active.
type Authenticator struct {
	verifier     *JWTVerifier
	store        PrincipalStore
	apiKeyHeader string
	logger       *slog.Logger
}

// NewAuthenticator creates the authentication middleware.
func NewAuthenticator(verifier *JWTVerifier, st PrincipalStore, apiKeyHeader string) *Authenticator {
	return &Authenticator{
		verifier:     verifier,
		store:        st,
		apiKeyHeader: apiKeyHeader,
		logger:       slog.Default().With("component", "auth"),
	}
}

// Middleware wraps a handler with authentication. Unauthenticated requests
// get a 401 with a stable error code.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.authenticate(r)
		if err != nil {
			a.logger.Debug("authentication rejected", "path", r.URL.Path, "error", err)
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin rejects authenticated principals that are not admins. It must
// run inside Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || principal.PrincipalType != store.PrincipalTypeAdmin {
			writeAuthError(w, http.StatusForbidden, "ADMIN_REQUIRED", "admin credentials required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(r *http.Request) (*store.Principal, error) {
	ctx := r.Context()

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		subject, err := a.verifier.Verify(token)
		if err != nil {
			return nil, err
		}
		return a.activePrincipal(a.store.GetPrincipalByAuthSubject(ctx, subject))
	}

	if key := r.Header.Get(a.apiKeyHeader); key != "" {
		record, err := VerifyAPIKey(ctx, a.store, key)
		if err != nil {
			return nil, err
		}
		return a.activePrincipal(a.store.GetPrincipal(ctx, record.PrincipalID))
	}

	return nil, ErrInvalidToken
}

func (a *Authenticator) activePrincipal(p *store.Principal, err error) (*store.Principal, error) {
	if err != nil {
		return nil, err
	}
	if p.Status != store.StatusActive {
		return nil, ErrInvalidToken
	}
	return p, nil
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}
