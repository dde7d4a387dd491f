// ABOUTME: Admin HTTP handlers for principals, profiles, manifests, bindings and secret refs
// ABOUTME: All writes are forbidden-key scanned, tenant scoped and audit logged

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bootgate/bootgate/internal/auth"
	"github.com/bootgate/bootgate/internal/policy"
	"github.com/bootgate/bootgate/internal/store"
)

// CreatePrincipalRequest is the JSON request body for POST /v1/admin/principals.
type CreatePrincipalRequest struct {
	PrincipalKey  string `json:"principal_key"`
	AuthSubject   string `json:"auth_subject"`
	PrincipalType string `json:"principal_type"`
}

// PrincipalResponse is the JSON shape of a principal.
type PrincipalResponse struct {
	ID            string `json:"id"`
	TenantKey     string `json:"tenant_key"`
	PrincipalKey  string `json:"principal_key"`
	AuthSubject   string `json:"auth_subject"`
	PrincipalType string `json:"principal_type"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// CreateProfileRequest is the JSON request body for POST /v1/admin/profiles.
type CreateProfileRequest struct {
	ProfileKey        string    `json:"profile_key"`
	Capabilities      store.Doc `json:"capabilities"`
	Policy            store.Doc `json:"policy"`
	StartupSLASeconds int       `json:"startup_sla_seconds"`
}

// ProfileResponse is the JSON shape of a profile.
type ProfileResponse struct {
	ID                string    `json:"id"`
	TenantKey         string    `json:"tenant_key"`
	ProfileKey        string    `json:"profile_key"`
	Capabilities      store.Doc `json:"capabilities"`
	Policy            store.Doc `json:"policy"`
	StartupSLASeconds int       `json:"startup_sla_seconds"`
	CreatedAt         string    `json:"created_at"`
}

// CreateManifestRequest is the JSON request body for POST /v1/admin/manifests.
type CreateManifestRequest struct {
	ManifestKey   string    `json:"manifest_key"`
	DeploymentKey string    `json:"deployment_key"`
	Environment   store.Doc `json:"environment"`
	Services      store.Doc `json:"services"`
	MemoryMap     store.Doc `json:"memory_map"`
	Polling       store.Doc `json:"polling"`
	Schemas       store.Doc `json:"schemas"`
	Version       int       `json:"version"`
}

// ManifestResponse is the JSON shape of a manifest.
type ManifestResponse struct {
	ID            string    `json:"id"`
	TenantKey     string    `json:"tenant_key"`
	ManifestKey   string    `json:"manifest_key"`
	DeploymentKey string    `json:"deployment_key"`
	Environment   store.Doc `json:"environment"`
	Services      store.Doc `json:"services"`
	MemoryMap     store.Doc `json:"memory_map"`
	Polling       store.Doc `json:"polling"`
	Schemas       store.Doc `json:"schemas"`
	Version       int       `json:"version"`
	CreatedAt     string    `json:"created_at"`
}

// CreateBindingRequest is the JSON request body for POST /v1/admin/bindings.
type CreateBindingRequest struct {
	PrincipalID string    `json:"principal_id"`
	ProfileID   string    `json:"profile_id"`
	ManifestID  string    `json:"manifest_id"`
	Overrides   store.Doc `json:"overrides,omitempty"`
	Active      *bool     `json:"active,omitempty"`
}

// AdminBindingResponse is the JSON shape of a binding.
type AdminBindingResponse struct {
	ID          string    `json:"id"`
	TenantKey   string    `json:"tenant_key"`
	PrincipalID string    `json:"principal_id"`
	ProfileID   string    `json:"profile_id"`
	ManifestID  string    `json:"manifest_id"`
	Overrides   store.Doc `json:"overrides,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   string    `json:"created_at"`
}

// CreateSecretRefRequest is the JSON request body for POST /v1/admin/secret-refs.
type CreateSecretRefRequest struct {
	SecretKey string    `json:"secret_key"`
	RefKind   string    `json:"ref_kind"`
	RefName   string    `json:"ref_name"`
	RefMeta   store.Doc `json:"ref_meta,omitempty"`
}

// SecretRefResponse is the JSON shape of a secret ref.
type SecretRefResponse struct {
	ID        string    `json:"id"`
	TenantKey string    `json:"tenant_key"`
	SecretKey string    `json:"secret_key"`
	RefKind   string    `json:"ref_kind"`
	RefName   string    `json:"ref_name"`
	RefMeta   store.Doc `json:"ref_meta,omitempty"`
	Status    string    `json:"status"`
	CreatedAt string    `json:"created_at"`
}

// CreateAPIKeyRequest is the JSON request body for POST /v1/admin/api-keys.
type CreateAPIKeyRequest struct {
	PrincipalID string     `json:"principal_id"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse carries the plaintext key exactly once.
type CreateAPIKeyResponse struct {
	ID        string `json:"id"`
	KeyID     string `json:"key_id"`
	APIKey    string `json:"api_key"`
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (g *Gateway) handleCreatePrincipal(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	var req CreatePrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.PrincipalKey == "" || req.AuthSubject == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "principal_key and auth_subject are required")
		return
	}
	if req.PrincipalType == "" {
		req.PrincipalType = store.PrincipalTypeComponent
	}
	if req.PrincipalType != store.PrincipalTypeComponent && req.PrincipalType != store.PrincipalTypeAdmin {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "principal_type must be component or admin")
		return
	}

	now := time.Now().UTC()
	p := &store.Principal{
		ID:            uuid.NewString(),
		TenantKey:     actor.TenantKey,
		PrincipalKey:  req.PrincipalKey,
		AuthSubject:   req.AuthSubject,
		PrincipalType: req.PrincipalType,
		Status:        store.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := g.store.CreatePrincipal(r.Context(), p); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "create", "principal", p.ID, p.PrincipalKey, nil)
	writeJSON(w, http.StatusCreated, principalResponse(p))
}

func (g *Gateway) handleListPrincipals(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	principals, err := g.store.ListPrincipals(r.Context(), actor.TenantKey)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]PrincipalResponse, 0, len(principals))
	for _, p := range principals {
		out = append(out, principalResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"principals": out})
}

func (g *Gateway) handleDeletePrincipal(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := g.tenantOwnsPrincipal(r.Context(), actor, id); err != nil {
		writeAdminError(w, err)
		return
	}
	if err := g.store.DeletePrincipal(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "delete", "principal", id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.ProfileKey == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "profile_key is required")
		return
	}
	if req.StartupSLASeconds <= 0 {
		req.StartupSLASeconds = g.cfg.Bootstrap.DefaultStartupSLASeconds
	}
	if req.Capabilities == nil {
		req.Capabilities = store.Doc{}
	}
	if req.Policy == nil {
		req.Policy = store.Doc{}
	}

	if err := policy.Check(store.Doc{"capabilities": req.Capabilities, "policy": req.Policy}); err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	p := &store.Profile{
		ID:                uuid.NewString(),
		TenantKey:         actor.TenantKey,
		ProfileKey:        req.ProfileKey,
		Capabilities:      req.Capabilities,
		Policy:            req.Policy,
		StartupSLASeconds: req.StartupSLASeconds,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := g.store.CreateProfile(r.Context(), p); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "create", "profile", p.ID, p.ProfileKey, nil)
	writeJSON(w, http.StatusCreated, profileResponse(p))
}

func (g *Gateway) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	profiles, err := g.store.ListProfiles(r.Context(), actor.TenantKey)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

func (g *Gateway) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := g.store.DeleteProfile(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "delete", "profile", id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleCreateManifest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	var req CreateManifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.ManifestKey == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "manifest_key is required")
		return
	}
	if req.DeploymentKey == "" {
		req.DeploymentKey = g.cfg.Bootstrap.DefaultDeploymentKey
	}
	if req.Version <= 0 {
		req.Version = 1
	}
	for _, doc := range []*store.Doc{&req.Environment, &req.Services, &req.MemoryMap, &req.Polling, &req.Schemas} {
		if *doc == nil {
			*doc = store.Doc{}
		}
	}

	if err := policy.Check(store.Doc{
		"environment": req.Environment,
		"services":    req.Services,
		"memory_map":  req.MemoryMap,
		"polling":     req.Polling,
		"schemas":     req.Schemas,
	}); err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	m := &store.Manifest{
		ID:            uuid.NewString(),
		TenantKey:     actor.TenantKey,
		ManifestKey:   req.ManifestKey,
		DeploymentKey: req.DeploymentKey,
		Environment:   req.Environment,
		Services:      req.Services,
		MemoryMap:     req.MemoryMap,
		Polling:       req.Polling,
		Schemas:       req.Schemas,
		Version:       req.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := g.store.CreateManifest(r.Context(), m); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "create", "manifest", m.ID, m.ManifestKey, nil)
	writeJSON(w, http.StatusCreated, manifestResponse(m))
}

func (g *Gateway) handleListManifests(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	manifests, err := g.store.ListManifests(r.Context(), actor.TenantKey)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]ManifestResponse, 0, len(manifests))
	for _, m := range manifests {
		out = append(out, manifestResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"manifests": out})
}

func (g *Gateway) handleDeleteManifest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := g.store.DeleteManifest(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "delete", "manifest", id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleCreateBinding(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	var req CreateBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.ProfileID == "" || req.ManifestID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "principal_id, profile_id and manifest_id are required")
		return
	}

	if err := policy.Check(req.Overrides); err != nil {
		writeServiceError(w, err)
		return
	}

	// All three referenced rows must exist and belong to the actor's tenant
	// before a binding ties them together.
	if err := g.tenantOwnsPrincipal(r.Context(), actor, req.PrincipalID); err != nil {
		writeAdminError(w, err)
		return
	}
	if err := g.tenantOwnsProfile(r.Context(), actor, req.ProfileID); err != nil {
		writeAdminError(w, err)
		return
	}
	if err := g.tenantOwnsManifest(r.Context(), actor, req.ManifestID); err != nil {
		writeAdminError(w, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	b := &store.Binding{
		ID:          uuid.NewString(),
		TenantKey:   actor.TenantKey,
		PrincipalID: req.PrincipalID,
		ProfileID:   req.ProfileID,
		ManifestID:  req.ManifestID,
		Overrides:   req.Overrides,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.store.CreateBinding(r.Context(), b); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "create", "binding", b.ID, "", store.Doc{
		"principal_id": b.PrincipalID,
		"active":       b.Active,
	})
	writeJSON(w, http.StatusCreated, bindingResponse(b))
}

func (g *Gateway) handleListBindings(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	bindings, err := g.store.ListBindings(r.Context(), actor.TenantKey)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]AdminBindingResponse, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, bindingResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bindings": out})
}

func (g *Gateway) handleDeleteBinding(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := g.store.DeleteBinding(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "delete", "binding", id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleCreateSecretRef(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	var req CreateSecretRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.SecretKey == "" || req.RefName == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "secret_key and ref_name are required")
		return
	}
	if req.RefKind == "" {
		req.RefKind = "env"
	}
	if req.RefKind != "env" && req.RefKind != "file" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "ref_kind must be env or file")
		return
	}

	ref := &store.SecretRef{
		ID:        uuid.NewString(),
		TenantKey: actor.TenantKey,
		SecretKey: req.SecretKey,
		RefKind:   req.RefKind,
		RefName:   req.RefName,
		RefMeta:   req.RefMeta,
		Status:    store.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.CreateSecretRef(r.Context(), ref); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "create", "secret_ref", ref.ID, ref.SecretKey, nil)
	writeJSON(w, http.StatusCreated, secretRefResponse(ref))
}

func (g *Gateway) handleListSecretRefs(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	refs, err := g.store.ListSecretRefs(r.Context(), actor.TenantKey)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]SecretRefResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, secretRefResponse(ref))
	}
	writeJSON(w, http.StatusOK, map[string]any{"secret_refs": out})
}

func (g *Gateway) handleDeleteSecretRef(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := g.store.DeleteSecretRef(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "delete", "secret_ref", id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "principal_id and name are required")
		return
	}

	if err := g.tenantOwnsPrincipal(r.Context(), actor, req.PrincipalID); err != nil {
		writeAdminError(w, err)
		return
	}

	plaintext, record, err := auth.IssueAPIKey(r.Context(), g.store, actor.TenantKey, req.PrincipalID, req.Name, req.ExpiresAt)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	g.audit(r.Context(), actor, "create", "api_key", record.ID, record.KeyID, nil)

	resp := CreateAPIKeyResponse{
		ID:     record.ID,
		KeyID:  record.KeyID,
		APIKey: plaintext,
		Name:   record.Name,
	}
	if record.ExpiresAt != nil {
		resp.ExpiresAt = formatRFC3339(*record.ExpiresAt)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleListSessions handles GET /v1/admin/sessions.
func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())

	filter := store.SessionFilter{TenantKey: &actor.TenantKey}
	if status := r.URL.Query().Get("status"); status != "" {
		if !store.ValidSessionStatus(status) {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid status filter")
			return
		}
		filter.Status = &status
	}
	if component := r.URL.Query().Get("component_key"); component != "" {
		filter.ComponentKey = &component
	}

	sessions, err := g.startup.List(r.Context(), filter)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// tenantOwnsPrincipal verifies the target principal exists inside the actor's
// tenant. Cross-tenant references look like not-found.
func (g *Gateway) tenantOwnsPrincipal(ctx context.Context, actor *store.Principal, principalID string) error {
	p, err := g.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	if p.TenantKey != actor.TenantKey {
		return store.ErrPrincipalNotFound
	}
	return nil
}

func (g *Gateway) tenantOwnsProfile(ctx context.Context, actor *store.Principal, profileID string) error {
	p, err := g.store.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if p.TenantKey != actor.TenantKey {
		return store.ErrProfileNotFound
	}
	return nil
}

func (g *Gateway) tenantOwnsManifest(ctx context.Context, actor *store.Principal, manifestID string) error {
	m, err := g.store.GetManifest(ctx, manifestID)
	if err != nil {
		return err
	}
	if m.TenantKey != actor.TenantKey {
		return store.ErrManifestNotFound
	}
	return nil
}

// audit records an admin mutation; failures are logged, never surfaced.
func (g *Gateway) audit(ctx context.Context, actor *store.Principal, action, resourceType, resourceID, resourceKey string, detail store.Doc) {
	entry := &store.AuditEntry{
		ID:                uuid.NewString(),
		TenantKey:         actor.TenantKey,
		Timestamp:         time.Now().UTC(),
		Action:            action,
		ResourceType:      resourceType,
		ResourceID:        resourceID,
		ResourceKey:       resourceKey,
		ActorPrincipalKey: actor.PrincipalKey,
		Detail:            detail,
	}
	if err := g.store.AppendAuditLog(ctx, entry); err != nil {
		g.logger.Warn("audit append failed", "action", action, "resource_type", resourceType, "error", err)
	}
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "DUPLICATE_KEY", "key already exists")
	case errors.Is(err, store.ErrPrincipalNotFound),
		errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrManifestNotFound),
		errors.Is(err, store.ErrBindingNotFound),
		errors.Is(err, store.ErrSecretRefNotFound),
		errors.Is(err, store.ErrAPIKeyNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func principalResponse(p *store.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:            p.ID,
		TenantKey:     p.TenantKey,
		PrincipalKey:  p.PrincipalKey,
		AuthSubject:   p.AuthSubject,
		PrincipalType: p.PrincipalType,
		Status:        p.Status,
		CreatedAt:     formatRFC3339(p.CreatedAt),
	}
}

func profileResponse(p *store.Profile) ProfileResponse {
	return ProfileResponse{
		ID:                p.ID,
		TenantKey:         p.TenantKey,
		ProfileKey:        p.ProfileKey,
		Capabilities:      p.Capabilities,
		Policy:            p.Policy,
		StartupSLASeconds: p.StartupSLASeconds,
		CreatedAt:         formatRFC3339(p.CreatedAt),
	}
}

func manifestResponse(m *store.Manifest) ManifestResponse {
	return ManifestResponse{
		ID:            m.ID,
		TenantKey:     m.TenantKey,
		ManifestKey:   m.ManifestKey,
		DeploymentKey: m.DeploymentKey,
		Environment:   m.Environment,
		Services:      m.Services,
		MemoryMap:     m.MemoryMap,
		Polling:       m.Polling,
		Schemas:       m.Schemas,
		Version:       m.Version,
		CreatedAt:     formatRFC3339(m.CreatedAt),
	}
}

func bindingResponse(b *store.Binding) AdminBindingResponse {
	return AdminBindingResponse{
		ID:          b.ID,
		TenantKey:   b.TenantKey,
		PrincipalID: b.PrincipalID,
		ProfileID:   b.ProfileID,
		ManifestID:  b.ManifestID,
		Overrides:   b.Overrides,
		Active:      b.Active,
		CreatedAt:   formatRFC3339(b.CreatedAt),
	}
}

func secretRefResponse(ref *store.SecretRef) SecretRefResponse {
	return SecretRefResponse{
		ID:        ref.ID,
		TenantKey: ref.TenantKey,
		SecretKey: ref.SecretKey,
		RefKind:   ref.RefKind,
		RefName:   ref.RefName,
		RefMeta:   ref.RefMeta,
		Status:    ref.Status,
		CreatedAt: formatRFC3339(ref.CreatedAt),
	}
}
