// ABOUTME: Shared test fixtures for the store package
// ABOUTME: Every test runs against an in-memory SQLite database

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func makePrincipal(t *testing.T, s *SQLiteStore, principalKey string) *Principal {
	t.Helper()

	now := time.Now().UTC()
	p := &Principal{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		PrincipalKey:  principalKey,
		AuthSubject:   "subject-" + principalKey,
		PrincipalType: PrincipalTypeComponent,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreatePrincipal(context.Background(), p))
	return p
}

func makeProfile(t *testing.T, s *SQLiteStore, profileKey string) *Profile {
	t.Helper()

	now := time.Now().UTC()
	p := &Profile{
		ID:         uuid.NewString(),
		TenantKey:  "default",
		ProfileKey: profileKey,
		Capabilities: Doc{
			"allowed_components": []any{"herald", "scribe"},
		},
		Policy:            Doc{"max_concurrency": float64(4)},
		StartupSLASeconds: 120,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.CreateProfile(context.Background(), p))
	return p
}

func makeManifest(t *testing.T, s *SQLiteStore, manifestKey string) *Manifest {
	t.Helper()

	now := time.Now().UTC()
	m := &Manifest{
		ID:            uuid.NewString(),
		TenantKey:     "default",
		ManifestKey:   manifestKey,
		DeploymentKey: "default",
		Environment:   Doc{"region": "local"},
		Services:      Doc{"receiptgate": Doc{"url": "http://localhost:9100"}},
		MemoryMap:     Doc{"shared": "/var/lib/bootgate"},
		Polling:       Doc{"interval_seconds": float64(30)},
		Schemas:       Doc{"receipt": "v1"},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreateManifest(context.Background(), m))
	return m
}

func makeBinding(t *testing.T, s *SQLiteStore, principalID, profileID, manifestID string, active bool) *Binding {
	t.Helper()

	now := time.Now().UTC()
	b := &Binding{
		ID:          uuid.NewString(),
		TenantKey:   "default",
		PrincipalID: principalID,
		ProfileID:   profileID,
		ManifestID:  manifestID,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateBinding(context.Background(), b))
	return b
}

func makeSession(t *testing.T, s *SQLiteStore, componentKey string, openedAt time.Time) *StartupSession {
	t.Helper()

	sess := &StartupSession{
		ID:                  uuid.NewString(),
		TenantKey:           "default",
		DeploymentKey:       "default",
		SubjectPrincipalKey: componentKey,
		ComponentKey:        componentKey,
		ProfileKey:          "worker",
		ManifestKey:         "local",
		PacketETag:          "abc123",
		PacketHashRedacted:  "deadbeefdeadbeef",
		Status:              SessionOpen,
		OpenedAt:            openedAt,
		DeadlineAt:          openedAt.Add(2 * time.Minute),
		MirrorStatus:        MirrorPending,
		CreatedAt:           openedAt,
	}
	require.NoError(t, s.CreateStartupSession(context.Background(), sess))
	return sess
}

func strPtr(s string) *string {
	return &s
}

func TestFormatTimeIsSortable(t *testing.T) {
	// Whole-second and fractional timestamps must compare correctly as
	// strings, since retention and list queries compare the stored column.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + 250*time.Microsecond),
		base.Add(2 * time.Second),
	}

	for i := 1; i < len(times); i++ {
		prev, cur := formatTime(times[i-1]), formatTime(times[i])
		require.Less(t, prev, cur, "stored timestamps must order lexicographically")
		require.Len(t, cur, len(prev), "stored timestamps must be fixed width")
	}

	for _, ts := range times {
		parsed, err := parseTime(formatTime(ts))
		require.NoError(t, err)
		require.True(t, parsed.Equal(ts))
	}
}
