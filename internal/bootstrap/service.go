// ABOUTME: Bootstrap service resolving identity to binding to profile to manifest
// ABOUTME: Builds the Welcome Packet, opens the startup session and emits the open receipt

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bootgate/bootgate/internal/packet"
	"github.com/bootgate/bootgate/internal/policy"
	"github.com/bootgate/bootgate/internal/store"
)

// Store is the persistence surface the bootstrap service needs.
type Store interface {
	GetActiveBinding(ctx context.Context, principalID string) (*store.Binding, error)
	GetProfile(ctx context.Context, id string) (*store.Profile, error)
	GetManifest(ctx context.Context, id string) (*store.Manifest, error)
	ListActiveSecretRefs(ctx context.Context, tenantKey string) ([]*store.SecretRef, error)
	CreateStartupSession(ctx context.Context, s *store.StartupSession) error
}

// ReceiptEmitter mirrors session lifecycle events to an external receipt
// ledger. Emission is best effort and must never fail a bootstrap.
type ReceiptEmitter interface {
	EmitOpen(sess *store.StartupSession)
}

// Request carries the caller-supplied bootstrap parameters. The principal
// itself comes from authentication, not from the request body.
type Request struct {
	ComponentKey     string
	PrincipalKeyHint string
	LastPacketETag   string
}

// Service performs the bootstrap resolution chain and packet assembly.
type Service struct {
	store    Store
	receipts ReceiptEmitter
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a bootstrap service. The receipt emitter may be nil when
// receipt mirroring is disabled.
func NewService(st Store, receipts ReceiptEmitter) *Service {
	return &Service{
		store:    st,
		receipts: receipts,
		logger:   slog.Default().With("component", "bootstrap"),
		now:      time.Now,
	}
}

// Bootstrap resolves the caller's world and returns a Welcome Packet.
// When the caller's cached ETag still matches, it returns (nil, true, nil)
// and no session is opened: an unchanged world needs no new witness.
func (s *Service) Bootstrap(ctx context.Context, principal *store.Principal, req Request) (*packet.WelcomePacket, bool, error) {
	if req.PrincipalKeyHint != "" && req.PrincipalKeyHint != principal.PrincipalKey {
		return nil, false, fmt.Errorf("%w: hint %q, actual %q", ErrPrincipalMismatch, req.PrincipalKeyHint, principal.PrincipalKey)
	}

	binding, err := s.store.GetActiveBinding(ctx, principal.ID)
	if errors.Is(err, store.ErrBindingNotFound) {
		return nil, false, fmt.Errorf("%w: %s", ErrNoBinding, principal.PrincipalKey)
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading active binding: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, binding.ProfileID)
	if errors.Is(err, store.ErrProfileNotFound) {
		s.logger.Error("binding references missing profile",
			"binding_id", binding.ID, "profile_id", binding.ProfileID)
		return nil, false, ErrProfileMissing
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading profile: %w", err)
	}

	manifest, err := s.store.GetManifest(ctx, binding.ManifestID)
	if errors.Is(err, store.ErrManifestNotFound) {
		s.logger.Error("binding references missing manifest",
			"binding_id", binding.ID, "manifest_id", binding.ManifestID)
		return nil, false, ErrManifestMissing
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading manifest: %w", err)
	}

	// The allowlist is enforced on the profile as stored; overrides cannot
	// widen it.
	if err := checkComponentAllowed(profile.Capabilities, req.ComponentKey); err != nil {
		return nil, false, err
	}

	if err := policy.Check(manifestDoc(manifest)); err != nil {
		return nil, false, err
	}

	merged := packet.ApplyOverrides(packet.Groups{
		Capabilities: profile.Capabilities,
		Policy:       profile.Policy,
		Services:     manifest.Services,
		MemoryMap:    manifest.MemoryMap,
		Polling:      manifest.Polling,
		Schemas:      manifest.Schemas,
	}, binding.Overrides)

	// Overrides are caller-controlled data, so the merged result is scanned
	// again before anything leaves the building.
	if err := policy.Check(merged.MergedDoc()); err != nil {
		return nil, false, err
	}

	refs, err := s.store.ListActiveSecretRefs(ctx, principal.TenantKey)
	if err != nil {
		return nil, false, fmt.Errorf("loading secret refs: %w", err)
	}
	requiredEnv := make([]packet.RequiredEnv, 0, len(refs))
	for _, r := range refs {
		requiredEnv = append(requiredEnv, packet.RequiredEnv{
			SecretKey: r.SecretKey,
			RefKind:   r.RefKind,
			RefName:   r.RefName,
			RefMeta:   r.RefMeta,
		})
	}

	etag, err := packet.ComputeETag(map[string]any{
		"principal_key":    principal.PrincipalKey,
		"component_key":    req.ComponentKey,
		"profile":          profile.ProfileKey,
		"manifest":         manifest.ManifestKey,
		"manifest_version": manifest.Version,
		"capabilities":     merged.Capabilities,
		"policy":           merged.Policy,
		"services":         merged.Services,
		"memory_map":       merged.MemoryMap,
		"polling":          merged.Polling,
		"schemas":          merged.Schemas,
		"required_env":     requiredEnv,
	})
	if err != nil {
		return nil, false, err
	}

	if req.LastPacketETag != "" && req.LastPacketETag == etag {
		s.logger.Debug("packet unchanged, skipping session",
			"principal_key", principal.PrincipalKey, "etag", etag)
		return nil, true, nil
	}

	now := s.now().UTC()
	redacted, err := packet.ComputeRedactedHash(
		principal.PrincipalKey, req.ComponentKey,
		profile.ProfileKey, manifest.ManifestKey, now,
	)
	if err != nil {
		return nil, false, err
	}

	sess := &store.StartupSession{
		ID:                  uuid.NewString(),
		TenantKey:           principal.TenantKey,
		DeploymentKey:       manifest.DeploymentKey,
		SubjectPrincipalKey: principal.PrincipalKey,
		ComponentKey:        req.ComponentKey,
		ProfileKey:          profile.ProfileKey,
		ManifestKey:         manifest.ManifestKey,
		PacketETag:          etag,
		PacketHashRedacted:  redacted,
		Status:              store.SessionOpen,
		OpenedAt:            now,
		DeadlineAt:          now.Add(time.Duration(profile.StartupSLASeconds) * time.Second),
		MirrorStatus:        store.MirrorPending,
		CreatedAt:           now,
	}
	if err := s.store.CreateStartupSession(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("opening startup session: %w", err)
	}

	s.logger.Info("bootstrap complete",
		"principal_key", principal.PrincipalKey,
		"component_key", req.ComponentKey,
		"startup_id", sess.ID,
		"packet_hash", redacted,
	)

	if s.receipts != nil {
		s.receipts.EmitOpen(sess)
	}

	wp := &packet.WelcomePacket{
		PacketID:        uuid.NewString(),
		PacketETag:      etag,
		IssuedAt:        now,
		PrincipalKey:    principal.PrincipalKey,
		ComponentKey:    req.ComponentKey,
		Profile:         profile.ProfileKey,
		Manifest:        manifest.ManifestKey,
		ManifestVersion: manifest.Version,
		Capabilities:    merged.Capabilities,
		Policy:          merged.Policy,
		Services:        merged.Services,
		MemoryMap:       merged.MemoryMap,
		Polling:         merged.Polling,
		Schemas:         merged.Schemas,
		RequiredEnv:     requiredEnv,
		Startup: packet.StartupBlock{
			StartupID:  sess.ID,
			Status:     store.SessionOpen,
			DeadlineAt: sess.DeadlineAt,
			Followup:   packet.StartupFollowup,
		},
	}
	return wp, false, nil
}

// checkComponentAllowed enforces the profile's allowed_components capability.
// An absent or empty list permits any component key.
func checkComponentAllowed(capabilities store.Doc, componentKey string) error {
	raw, ok := capabilities["allowed_components"]
	if !ok {
		return nil
	}
	allowed, ok := raw.([]any)
	if !ok || len(allowed) == 0 {
		return nil
	}
	for _, item := range allowed {
		if s, ok := item.(string); ok && s == componentKey {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrComponentNotPermitted, componentKey)
}

func manifestDoc(m *store.Manifest) store.Doc {
	return store.Doc{
		"environment": m.Environment,
		"services":    m.Services,
		"memory_map":  m.MemoryMap,
		"polling":     m.Polling,
		"schemas":     m.Schemas,
	}
}
