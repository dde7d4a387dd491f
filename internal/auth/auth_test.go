// ABOUTME: Tests for JWT verification, API key issuance and the HTTP middleware
// ABOUTME: Middleware tests drive real requests through httptest against SQLite

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootgate/bootgate/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	v := NewJWTVerifier([]byte(testSecret), "bootgate")

	token, err := v.Generate("subject-herald", time.Hour)
	require.NoError(t, err)

	subject, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "subject-herald", subject)
}

func TestJWTExpired(t *testing.T) {
	v := NewJWTVerifier([]byte(testSecret), "")

	token, err := v.Generate("subject-herald", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecret(t *testing.T) {
	v := NewJWTVerifier([]byte(testSecret), "")
	other := NewJWTVerifier([]byte("ffffffffffffffffffffffffffffffff"), "")

	token, err := other.Generate("subject-herald", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuerEnforced(t *testing.T) {
	issuing := NewJWTVerifier([]byte(testSecret), "someone-else")
	verifying := NewJWTVerifier([]byte(testSecret), "bootgate")

	token, err := issuing.Generate("subject-herald", time.Hour)
	require.NoError(t, err)

	_, err = verifying.Verify(token)
	assert.ErrorIs(t, err, ErrWrongIssuer)
}

func setupAuthStore(t *testing.T) (*store.SQLiteStore, *store.Principal) {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Now().UTC()
	p := &store.Principal{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		PrincipalKey:  "herald",
		AuthSubject:   "subject-herald",
		PrincipalType: store.PrincipalTypeComponent,
		Status:        store.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreatePrincipal(ctx, p))
	return s, p
}

func TestIssueAndVerifyAPIKey(t *testing.T) {
	s, p := setupAuthStore(t)
	ctx := context.Background()

	plaintext, record, err := IssueAPIKey(ctx, s, "default", p.ID, "herald key", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, "bk_"))
	assert.NotContains(t, record.SecretHash, strings.Split(plaintext, ".")[1], "plaintext secret must not be stored")

	verified, err := VerifyAPIKey(ctx, s, plaintext)
	require.NoError(t, err)
	assert.Equal(t, record.ID, verified.ID)

	// Verification stamps last-used.
	reloaded, err := s.GetAPIKeyByKeyID(ctx, record.KeyID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastUsedAt)
}

func TestVerifyAPIKeyRejections(t *testing.T) {
	s, p := setupAuthStore(t)
	ctx := context.Background()

	plaintext, _, err := IssueAPIKey(ctx, s, "default", p.ID, "herald key", nil)
	require.NoError(t, err)

	_, err = VerifyAPIKey(ctx, s, "not-a-key")
	assert.ErrorIs(t, err, ErrMalformedAPIKey)

	_, err = VerifyAPIKey(ctx, s, "bk_unknown.secret")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	tampered := plaintext[:len(plaintext)-4] + "0000"
	_, err = VerifyAPIKey(ctx, s, tampered)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestVerifyAPIKeyExpired(t *testing.T) {
	s, p := setupAuthStore(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	plaintext, _, err := IssueAPIKey(ctx, s, "default", p.ID, "stale key", &past)
	require.NoError(t, err)

	_, err = VerifyAPIKey(ctx, s, plaintext)
	assert.ErrorIs(t, err, ErrExpiredAPIKey)
}

func echoPrincipal(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(p.PrincipalKey))
	})
}

func TestMiddlewareBearerToken(t *testing.T) {
	s, _ := setupAuthStore(t)
	v := NewJWTVerifier([]byte(testSecret), "bootgate")
	authn := NewAuthenticator(v, s, "X-API-Key")

	token, err := v.Generate("subject-herald", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	authn.Middleware(echoPrincipal(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "herald", rec.Body.String())
}

func TestMiddlewareAPIKey(t *testing.T) {
	s, p := setupAuthStore(t)
	authn := NewAuthenticator(NewJWTVerifier([]byte(testSecret), ""), s, "X-API-Key")

	plaintext, _, err := IssueAPIKey(context.Background(), s, "default", p.ID, "herald key", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", plaintext)
	rec := httptest.NewRecorder()

	authn.Middleware(echoPrincipal(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "herald", rec.Body.String())
}

func TestMiddlewareRejectsMissingCredentials(t *testing.T) {
	s, _ := setupAuthStore(t)
	authn := NewAuthenticator(NewJWTVerifier([]byte(testSecret), ""), s, "X-API-Key")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	authn.Middleware(echoPrincipal(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
}

func TestMiddlewareRejectsDisabledPrincipal(t *testing.T) {
	s, _ := setupAuthStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	disabled := &store.Principal{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		PrincipalKey:  "ghost",
		AuthSubject:   "subject-ghost",
		PrincipalType: store.PrincipalTypeComponent,
		Status:        store.StatusDisabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreatePrincipal(ctx, disabled))

	v := NewJWTVerifier([]byte(testSecret), "")
	authn := NewAuthenticator(v, s, "X-API-Key")

	token, err := v.Generate("subject-ghost", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	authn.Middleware(echoPrincipal(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	admin := &store.Principal{PrincipalType: store.PrincipalTypeAdmin, Status: store.StatusActive}
	component := &store.Principal{PrincipalType: store.PrincipalTypeComponent, Status: store.StatusActive}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(WithPrincipal(req.Context(), admin)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(WithPrincipal(req.Context(), component)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
