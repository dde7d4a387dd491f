// ABOUTME: Store interface and data types for bootgate persistence
// ABOUTME: Defines the bootstrap entities and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// Entity lookup errors.
var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrManifestNotFound  = errors.New("manifest not found")
	ErrBindingNotFound   = errors.New("binding not found")
	ErrSecretRefNotFound = errors.New("secret ref not found")
	ErrSessionNotFound   = errors.New("startup session not found")
	ErrAPIKeyNotFound    = errors.New("api key not found")
)

// ErrDuplicateKey is returned when a unique key (principal_key, auth_subject,
// profile_key, manifest_key, secret_key) is already taken.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrSessionNotOpen is returned when a terminal transition targets a session
// that is no longer in the OPEN state.
var ErrSessionNotOpen = errors.New("startup session is not open")

// Doc is a nested JSON configuration document (capabilities, policy,
// services, memory maps, overrides). Values may themselves be Docs.
type Doc = map[string]any

// Principal types.
const (
	PrincipalTypeComponent = "component"
	PrincipalTypeAdmin     = "admin"
)

// Principal/secret-ref/api-key statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Startup session statuses. OPEN is the only non-terminal state.
const (
	SessionOpen   = "OPEN"
	SessionReady  = "READY"
	SessionFailed = "FAILED"
)

// Mirror statuses track whether the session's lifecycle receipt reached the
// external ledger.
const (
	MirrorPending = "PENDING"
	MirrorEmitted = "EMITTED"
)

// Principal is an authenticated actor known to the system.
type Principal struct {
	ID            string // UUID v4
	TenantKey     string
	PrincipalKey  string // stable external identifier, unique
	AuthSubject   string // matched against credential claims, unique
	PrincipalType string // "component" or "admin"
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile bundles capabilities and policy limits for a class of components.
type Profile struct {
	ID                string
	TenantKey         string
	ProfileKey        string // unique
	Capabilities      Doc
	Policy            Doc
	StartupSLASeconds int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Manifest describes the deployment world a component joins.
type Manifest struct {
	ID            string
	TenantKey     string
	ManifestKey   string // unique
	DeploymentKey string
	Environment   Doc
	Services      Doc
	MemoryMap     Doc
	Polling       Doc
	Schemas       Doc
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Binding links one principal to one profile and one manifest.
// At most one binding per principal is active at any time.
type Binding struct {
	ID          string
	TenantKey   string
	PrincipalID string
	ProfileID   string
	ManifestID  string
	Overrides   Doc // per-group shallow overlay document, may be nil
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SecretRef points at a secret the component must resolve itself.
// The referenced value is never stored or returned by this system.
type SecretRef struct {
	ID        string
	TenantKey string
	SecretKey string // unique
	RefKind   string // "env" or "file"
	RefName   string
	RefMeta   Doc
	Status    string
	CreatedAt time.Time
}

// StartupSession is the lifecycle witness record for one bootstrap event.
type StartupSession struct {
	ID                  string
	TenantKey           string
	DeploymentKey       string
	SubjectPrincipalKey string
	ComponentKey        string
	ProfileKey          string
	ManifestKey         string
	PacketETag          string
	PacketHashRedacted  string
	Status              string
	OpenedAt            time.Time
	DeadlineAt          time.Time
	ReadyAt             *time.Time
	FailedAt            *time.Time
	ReadyPayload        Doc
	FailurePayload      Doc
	MirrorStatus        string
	CreatedAt           time.Time
}

// APIKey is a stored credential reference: the plaintext secret is shown
// once at creation and only its bcrypt hash is persisted.
type APIKey struct {
	ID          string
	TenantKey   string
	KeyID       string // public key identifier, unique
	SecretHash  string // bcrypt hash of the secret part
	PrincipalID string
	Name        string
	Status      string
	LastUsedAt  *time.Time
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// AuditEntry records an admin mutation for accountability.
type AuditEntry struct {
	ID                string
	TenantKey         string
	Timestamp         time.Time
	Action            string // "create", "delete", "deactivate", ...
	ResourceType      string // "principal", "profile", "manifest", "binding", "secret_ref", "api_key"
	ResourceID        string
	ResourceKey       string
	ActorPrincipalKey string
	Detail            Doc
}

// SessionFilter specifies filtering options for listing startup sessions.
type SessionFilter struct {
	TenantKey    *string
	Status       *string
	ComponentKey *string
}

// Store defines the persistence surface for bootgate.
// SQLiteStore implements all of it; consumers depend on narrow subsets.
type Store interface {
	// Principals
	CreatePrincipal(ctx context.Context, p *Principal) error
	GetPrincipal(ctx context.Context, id string) (*Principal, error)
	GetPrincipalByAuthSubject(ctx context.Context, authSubject string) (*Principal, error)
	ListPrincipals(ctx context.Context, tenantKey string) ([]*Principal, error)
	DeletePrincipal(ctx context.Context, id string) error

	// Profiles
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context, tenantKey string) ([]*Profile, error)
	DeleteProfile(ctx context.Context, id string) error

	// Manifests
	CreateManifest(ctx context.Context, m *Manifest) error
	GetManifest(ctx context.Context, id string) (*Manifest, error)
	ListManifests(ctx context.Context, tenantKey string) ([]*Manifest, error)
	DeleteManifest(ctx context.Context, id string) error

	// Bindings
	CreateBinding(ctx context.Context, b *Binding) error
	GetBinding(ctx context.Context, id string) (*Binding, error)
	GetActiveBinding(ctx context.Context, principalID string) (*Binding, error)
	ListBindings(ctx context.Context, tenantKey string) ([]*Binding, error)
	DeleteBinding(ctx context.Context, id string) error

	// Secret refs
	CreateSecretRef(ctx context.Context, r *SecretRef) error
	GetSecretRef(ctx context.Context, id string) (*SecretRef, error)
	ListSecretRefs(ctx context.Context, tenantKey string) ([]*SecretRef, error)
	ListActiveSecretRefs(ctx context.Context, tenantKey string) ([]*SecretRef, error)
	DeleteSecretRef(ctx context.Context, id string) error

	// API keys
	CreateAPIKey(ctx context.Context, k *APIKey) error
	GetAPIKeyByKeyID(ctx context.Context, keyID string) (*APIKey, error)
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
	DeleteAPIKey(ctx context.Context, id string) error

	// Startup sessions
	CreateStartupSession(ctx context.Context, s *StartupSession) error
	GetStartupSession(ctx context.Context, id string) (*StartupSession, error)
	MarkSessionReady(ctx context.Context, id string, readyAt time.Time, payload Doc) error
	MarkSessionFailed(ctx context.Context, id string, failedAt time.Time, payload Doc) error
	SetSessionMirrorStatus(ctx context.Context, id string, mirrorStatus string) error
	ListStartupSessions(ctx context.Context, filter SessionFilter) ([]*StartupSession, error)
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)

	// Audit
	AppendAuditLog(ctx context.Context, entry *AuditEntry) error

	// Close releases any resources held by the store
	Close() error
}
