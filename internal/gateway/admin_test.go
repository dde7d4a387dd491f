// ABOUTME: HTTP tests for the admin CRUD surface
// ABOUTME: Covers admin gating, forbidden-key rejection and tenant scoping

package gateway

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootgate/bootgate/internal/store"
)

func TestAdminRequiresAdminPrincipal(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodGet, "/v1/admin/principals", "subject-herald", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = tg.request(t, http.MethodGet, "/v1/admin/principals", "subject-operator", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreateAndDeletePrincipal(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/principals", "subject-operator", CreatePrincipalRequest{
		PrincipalKey: "scribe",
		AuthSubject:  "subject-scribe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeJSON[PrincipalResponse](t, rec)
	assert.Equal(t, "scribe", created.PrincipalKey)
	assert.Equal(t, store.PrincipalTypeComponent, created.PrincipalType)

	// Duplicate key conflicts.
	rec = tg.request(t, http.MethodPost, "/v1/admin/principals", "subject-operator", CreatePrincipalRequest{
		PrincipalKey: "scribe",
		AuthSubject:  "subject-scribe-2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = tg.request(t, http.MethodDelete, "/v1/admin/principals/"+created.ID, "subject-operator", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = tg.request(t, http.MethodDelete, "/v1/admin/principals/"+created.ID, "subject-operator", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCreateProfileRejectsForbiddenKeys(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/profiles", "subject-operator", CreateProfileRequest{
		ProfileKey: "tainted",
		Policy: store.Doc{
			"tasks": []any{"do-something"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, "FORBIDDEN_KEYS", errResp.Code)
	assert.Contains(t, errResp.Paths, "policy.tasks")
}

func TestAdminCreateManifestRejectsForbiddenKeys(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/manifests", "subject-operator", CreateManifestRequest{
		ManifestKey: "tainted",
		Services:    store.Doc{"worker": store.Doc{"deploy": store.Doc{}}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, "FORBIDDEN_KEYS", errResp.Code)
}

func TestAdminCreateBindingRejectsForbiddenOverrides(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/bindings", "subject-operator", CreateBindingRequest{
		PrincipalID: tg.component.ID,
		ProfileID:   tg.profile.ID,
		ManifestID:  tg.manifest.ID,
		Overrides: store.Doc{
			"polling": store.Doc{"execute": "now"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, "FORBIDDEN_KEYS", errResp.Code)
}

func TestAdminCreateBindingChecksReferents(t *testing.T) {
	tg := newTestGateway(t)
	ctx := context.Background()

	// Unknown profile is a 404, not a storage fault.
	rec := tg.request(t, http.MethodPost, "/v1/admin/bindings", "subject-operator", CreateBindingRequest{
		PrincipalID: tg.component.ID,
		ProfileID:   "no-such-profile",
		ManifestID:  tg.manifest.ID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = tg.request(t, http.MethodPost, "/v1/admin/bindings", "subject-operator", CreateBindingRequest{
		PrincipalID: tg.component.ID,
		ProfileID:   tg.profile.ID,
		ManifestID:  "no-such-manifest",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Another tenant's profile looks like it does not exist.
	now := tg.profile.CreatedAt
	foreign := &store.Profile{
		ID:                "foreign-profile",
		TenantKey:         "other",
		ProfileKey:        "foreign",
		Capabilities:      store.Doc{},
		Policy:            store.Doc{},
		StartupSLASeconds: 120,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, tg.store.CreateProfile(ctx, foreign))

	rec = tg.request(t, http.MethodPost, "/v1/admin/bindings", "subject-operator", CreateBindingRequest{
		PrincipalID: tg.component.ID,
		ProfileID:   foreign.ID,
		ManifestID:  tg.manifest.ID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCreateBindingReplacesActive(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/bindings", "subject-operator", CreateBindingRequest{
		PrincipalID: tg.component.ID,
		ProfileID:   tg.profile.ID,
		ManifestID:  tg.manifest.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeJSON[AdminBindingResponse](t, rec)
	assert.True(t, created.Active)

	active, err := tg.store.GetActiveBinding(context.Background(), tg.component.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, active.ID)

	list := tg.request(t, http.MethodGet, "/v1/admin/bindings", "subject-operator", nil)
	require.Equal(t, http.StatusOK, list.Code)
	body := decodeJSON[map[string][]AdminBindingResponse](t, list)

	activeCount := 0
	for _, b := range body["bindings"] {
		if b.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestAdminCreateSecretRef(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/secret-refs", "subject-operator", CreateSecretRefRequest{
		SecretKey: "LLM_API_KEY",
		RefName:   "LLM_API_KEY",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeJSON[SecretRefResponse](t, rec)
	assert.Equal(t, "env", created.RefKind)
	assert.Equal(t, store.StatusActive, created.Status)

	rec = tg.request(t, http.MethodPost, "/v1/admin/secret-refs", "subject-operator", CreateSecretRefRequest{
		SecretKey: "BAD",
		RefKind:   "vault",
		RefName:   "BAD",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCreateAPIKey(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/api-keys", "subject-operator", CreateAPIKeyRequest{
		PrincipalID: tg.component.ID,
		Name:        "herald key",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeJSON[CreateAPIKeyResponse](t, rec)
	assert.True(t, strings.HasPrefix(created.APIKey, "bk_"))

	// The minted key authenticates bootstrap calls.
	boot := tg.requestWithAPIKey(t, created.APIKey, BootstrapRequest{ComponentKey: "herald"})
	assert.Equal(t, http.StatusOK, boot.Code)
}

func TestAdminListSessions(t *testing.T) {
	tg := newTestGateway(t)

	boot := tg.request(t, http.MethodPost, "/v1/bootstrap", "subject-herald", BootstrapRequest{
		ComponentKey: "herald",
	})
	require.Equal(t, http.StatusOK, boot.Code)

	rec := tg.request(t, http.MethodGet, "/v1/admin/sessions?status=OPEN", "subject-operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON[map[string][]SessionResponse](t, rec)
	assert.Len(t, body["sessions"], 1)

	rec = tg.request(t, http.MethodGet, "/v1/admin/sessions?status=bogus", "subject-operator", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuditTrail(t *testing.T) {
	tg := newTestGateway(t)

	rec := tg.request(t, http.MethodPost, "/v1/admin/profiles", "subject-operator", CreateProfileRequest{
		ProfileKey: "batch",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The audit row is written with the acting principal.
	var count int
	row := tg.store.DB().QueryRow(`SELECT COUNT(*) FROM audit_log WHERE actor_principal_key = 'operator' AND resource_type = 'profile'`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
