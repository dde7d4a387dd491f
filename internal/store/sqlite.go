// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides entity persistence with automatic schema creation

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS principals (
			id             TEXT PRIMARY KEY,
			tenant_key     TEXT NOT NULL DEFAULT 'default',
			principal_key  TEXT NOT NULL UNIQUE,
			auth_subject   TEXT NOT NULL UNIQUE,
			principal_type TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'active',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL,

			CHECK (principal_type IN ('component', 'admin'))
		);

		CREATE INDEX IF NOT EXISTS idx_principals_tenant ON principals(tenant_key);
		CREATE INDEX IF NOT EXISTS idx_principals_auth_subject ON principals(auth_subject);

		CREATE TABLE IF NOT EXISTS profiles (
			id                  TEXT PRIMARY KEY,
			tenant_key          TEXT NOT NULL DEFAULT 'default',
			profile_key         TEXT NOT NULL UNIQUE,
			capabilities_json   TEXT NOT NULL,
			policy_json         TEXT NOT NULL,
			startup_sla_seconds INTEGER NOT NULL DEFAULT 120,
			created_at          TEXT NOT NULL,
			updated_at          TEXT NOT NULL,

			CHECK (startup_sla_seconds > 0)
		);

		CREATE INDEX IF NOT EXISTS idx_profiles_tenant ON profiles(tenant_key);

		CREATE TABLE IF NOT EXISTS manifests (
			id              TEXT PRIMARY KEY,
			tenant_key      TEXT NOT NULL DEFAULT 'default',
			manifest_key    TEXT NOT NULL UNIQUE,
			deployment_key  TEXT NOT NULL DEFAULT 'default',
			environment_json TEXT NOT NULL,
			services_json   TEXT NOT NULL,
			memory_map_json TEXT NOT NULL,
			polling_json    TEXT NOT NULL,
			schemas_json    TEXT NOT NULL,
			version         INTEGER NOT NULL,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_manifests_tenant ON manifests(tenant_key);

		CREATE TABLE IF NOT EXISTS bindings (
			id             TEXT PRIMARY KEY,
			tenant_key     TEXT NOT NULL DEFAULT 'default',
			principal_id   TEXT NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
			profile_id     TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			manifest_id    TEXT NOT NULL REFERENCES manifests(id) ON DELETE CASCADE,
			overrides_json TEXT,
			active         INTEGER NOT NULL DEFAULT 1,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_bindings_principal ON bindings(principal_id);
		CREATE INDEX IF NOT EXISTS idx_bindings_principal_active ON bindings(principal_id, active);

		CREATE TABLE IF NOT EXISTS secret_refs (
			id         TEXT PRIMARY KEY,
			tenant_key TEXT NOT NULL DEFAULT 'default',
			secret_key TEXT NOT NULL UNIQUE,
			ref_kind   TEXT NOT NULL DEFAULT 'env',
			ref_name   TEXT NOT NULL,
			ref_meta_json TEXT,
			status     TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL,

			CHECK (ref_kind IN ('env', 'file'))
		);

		CREATE INDEX IF NOT EXISTS idx_secret_refs_tenant_status ON secret_refs(tenant_key, status);

		CREATE TABLE IF NOT EXISTS api_keys (
			id           TEXT PRIMARY KEY,
			tenant_key   TEXT NOT NULL DEFAULT 'default',
			key_id       TEXT NOT NULL UNIQUE,
			secret_hash  TEXT NOT NULL,
			principal_id TEXT NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
			name         TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'active',
			last_used_at TEXT,
			expires_at   TEXT,
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_principal ON api_keys(principal_id);

		CREATE TABLE IF NOT EXISTS startup_sessions (
			id                    TEXT PRIMARY KEY,
			tenant_key            TEXT NOT NULL DEFAULT 'default',
			deployment_key        TEXT NOT NULL DEFAULT 'default',
			subject_principal_key TEXT NOT NULL,
			component_key         TEXT NOT NULL,
			profile_key           TEXT NOT NULL,
			manifest_key          TEXT NOT NULL,
			packet_etag           TEXT NOT NULL,
			packet_hash_redacted  TEXT NOT NULL,
			status                TEXT NOT NULL,
			opened_at             TEXT NOT NULL,
			deadline_at           TEXT NOT NULL,
			ready_at              TEXT,
			failed_at             TEXT,
			ready_payload_json    TEXT,
			failure_payload_json  TEXT,
			mirror_status         TEXT NOT NULL DEFAULT 'PENDING',
			created_at            TEXT NOT NULL,

			CHECK (status IN ('OPEN', 'READY', 'FAILED'))
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_status ON startup_sessions(status);
		CREATE INDEX IF NOT EXISTS idx_sessions_status_opened ON startup_sessions(status, opened_at);
		CREATE INDEX IF NOT EXISTS idx_sessions_component ON startup_sessions(component_key);

		CREATE TABLE IF NOT EXISTS audit_log (
			id                  TEXT PRIMARY KEY,
			tenant_key          TEXT NOT NULL DEFAULT 'default',
			ts                  TEXT NOT NULL,
			action              TEXT NOT NULL,
			resource_type       TEXT NOT NULL,
			resource_id         TEXT NOT NULL,
			resource_key        TEXT,
			actor_principal_key TEXT NOT NULL,
			detail_json         TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_log(resource_type, resource_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying connection for diagnostics.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// marshalDoc serializes a Doc for storage, mapping nil to SQL NULL.
func marshalDoc(d Doc) (any, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return string(data), nil
}

// unmarshalDoc deserializes a stored document column, mapping NULL to nil.
func unmarshalDoc(raw sql.NullString) (Doc, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var d Doc
	if err := json.Unmarshal([]byte(raw.String), &d); err != nil {
		return nil, fmt.Errorf("unmarshaling document: %w", err)
	}
	return d, nil
}

// timeFormat is RFC3339 with fixed-width nanoseconds. RFC3339Nano trims
// trailing zeros, which breaks lexicographic ordering on timestamp columns.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime stores timestamps as UTC fixed-width RFC3339 strings.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime parses a stored RFC3339 timestamp.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// formatNullableTime maps a nil time to SQL NULL.
func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseNullableTime maps SQL NULL to a nil time.
func parseNullableTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
