// ABOUTME: Shared test harness for gateway HTTP tests
// ABOUTME: Boots a full router over an in-memory SQLite store with seeded fixtures

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bootgate/bootgate/internal/auth"
	"github.com/bootgate/bootgate/internal/config"
	"github.com/bootgate/bootgate/internal/store"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

type testGateway struct {
	gw       *Gateway
	router   http.Handler
	store    *store.SQLiteStore
	verifier *auth.JWTVerifier

	admin     *store.Principal
	component *store.Principal
	profile   *store.Profile
	manifest  *store.Manifest
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.JWTIssuer = "bootgate"
	cfg.Auth.APIKeyHeader = "X-API-Key"
	cfg.Bootstrap.DefaultTenantKey = "default"
	cfg.Bootstrap.DefaultDeploymentKey = "default"
	cfg.Bootstrap.DefaultStartupSLASeconds = 120
	cfg.Retention.SessionRetention = 72 * time.Hour
	cfg.Retention.SweepInterval = time.Hour

	gw := New(cfg, s)

	now := time.Now().UTC()

	admin := &store.Principal{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		PrincipalKey:  "operator",
		AuthSubject:   "subject-operator",
		PrincipalType: store.PrincipalTypeAdmin,
		Status:        store.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreatePrincipal(ctx, admin))

	component := &store.Principal{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		PrincipalKey:  "herald",
		AuthSubject:   "subject-herald",
		PrincipalType: store.PrincipalTypeComponent,
		Status:        store.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreatePrincipal(ctx, component))

	profile := &store.Profile{
		ID:         uuid.NewString(),
		TenantKey:  "default",
		ProfileKey: "worker",
		Capabilities: store.Doc{
			"allowed_components": []any{"herald"},
		},
		Policy:            store.Doc{"max_concurrency": float64(4)},
		StartupSLASeconds: 120,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.CreateProfile(ctx, profile))

	manifest := &store.Manifest{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		ManifestKey:   "local",
		DeploymentKey: "default",
		Environment:   store.Doc{"region": "local"},
		Services:      store.Doc{},
		MemoryMap:     store.Doc{},
		Polling:       store.Doc{"interval_seconds": float64(30)},
		Schemas:       store.Doc{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreateManifest(ctx, manifest))

	binding := &store.Binding{
		ID:          uuid.NewString(),
		TenantKey:   "default",
		PrincipalID: component.ID,
		ProfileID:   profile.ID,
		ManifestID:  manifest.ID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateBinding(ctx, binding))

	return &testGateway{
		gw:        gw,
		router:    gw.Router(),
		store:     s,
		verifier:  auth.NewJWTVerifier([]byte(testJWTSecret), "bootgate"),
		admin:     admin,
		component: component,
		profile:   profile,
		manifest:  manifest,
	}
}

func (tg *testGateway) token(t *testing.T, subject string) string {
	t.Helper()
	token, err := tg.verifier.Generate(subject, time.Hour)
	require.NoError(t, err)
	return token
}

func (tg *testGateway) request(t *testing.T, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+tg.token(t, subject))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)
	return rec
}

func (tg *testGateway) requestWithAPIKey(t *testing.T, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/bootstrap", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
