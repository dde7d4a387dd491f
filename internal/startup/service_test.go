// ABOUTME: Tests for startup session transitions and the retention sweeper
// ABOUTME: Uses an in-memory SQLite store and a recording receipt emitter

package startup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootgate/bootgate/internal/store"
)

func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openSession(t *testing.T, s *store.SQLiteStore, openedAt time.Time) *store.StartupSession {
	t.Helper()
	sess := &store.StartupSession{
		ID:                  uuid.NewString(),
		TenantKey:           "default",
		DeploymentKey:       "default",
		SubjectPrincipalKey: "herald",
		ComponentKey:        "herald",
		ProfileKey:          "worker",
		ManifestKey:         "local",
		PacketETag:          "etag",
		PacketHashRedacted:  "deadbeefdeadbeef",
		Status:              store.SessionOpen,
		OpenedAt:            openedAt,
		DeadlineAt:          openedAt.Add(2 * time.Minute),
		MirrorStatus:        store.MirrorPending,
		CreatedAt:           openedAt,
	}
	require.NoError(t, s.CreateStartupSession(context.Background(), sess))
	return sess
}

type terminalRecorder struct {
	mu       sync.Mutex
	terminal []*store.StartupSession
}

func (r *terminalRecorder) EmitTerminal(sess *store.StartupSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminal = append(r.terminal, sess)
}

func TestMarkReady(t *testing.T) {
	s := setupStore(t)
	emitter := &terminalRecorder{}
	svc := NewService(s, emitter)

	sess := openSession(t, s, time.Now().UTC())

	got, err := svc.MarkReady(context.Background(), sess.ID, ReadyReport{
		BuildVersion: "1.4.2",
		Health:       "ok",
	})
	require.NoError(t, err)

	assert.Equal(t, store.SessionReady, got.Status)
	assert.Equal(t, "1.4.2", got.ReadyPayload["build_version"])
	assert.Equal(t, "ok", got.ReadyPayload["health"])
	assert.NotEmpty(t, got.ReadyPayload["acknowledged_at"])

	require.Len(t, emitter.terminal, 1)
	assert.Equal(t, sess.ID, emitter.terminal[0].ID)
}

func TestMarkFailed(t *testing.T) {
	s := setupStore(t)
	svc := NewService(s, nil)

	sess := openSession(t, s, time.Now().UTC())

	got, err := svc.MarkFailed(context.Background(), sess.ID, FailureReport{
		Error:   "config fetch timeout",
		Details: store.Doc{"attempts": float64(3)},
	})
	require.NoError(t, err)

	assert.Equal(t, store.SessionFailed, got.Status)
	assert.Equal(t, "config fetch timeout", got.FailurePayload["error"])
	details, ok := got.FailurePayload["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), details["attempts"])
}

func TestTerminalTransitionsAreExclusive(t *testing.T) {
	s := setupStore(t)
	svc := NewService(s, nil)
	ctx := context.Background()

	sess := openSession(t, s, time.Now().UTC())

	_, err := svc.MarkReady(ctx, sess.ID, ReadyReport{BuildVersion: "1.0.0"})
	require.NoError(t, err)

	_, err = svc.MarkFailed(ctx, sess.ID, FailureReport{Error: "too late"})
	assert.ErrorIs(t, err, store.ErrSessionNotOpen)

	_, err = svc.MarkReady(ctx, "missing", ReadyReport{BuildVersion: "1.0.0"})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestReadyAfterDeadlineStillAccepted(t *testing.T) {
	s := setupStore(t)
	svc := NewService(s, nil)

	// Opened long ago, deadline well past. The transition still succeeds;
	// lateness is observable, not blocking.
	sess := openSession(t, s, time.Now().UTC().Add(-time.Hour))

	got, err := svc.MarkReady(context.Background(), sess.ID, ReadyReport{BuildVersion: "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, store.SessionReady, got.Status)
}

func TestSweeperRemovesOnlyAgedTerminalSessions(t *testing.T) {
	s := setupStore(t)
	svc := NewService(s, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	staleReady := openSession(t, s, now.Add(-100*time.Hour))
	staleOpen := openSession(t, s, now.Add(-100*time.Hour))
	fresh := openSession(t, s, now)

	_, err := svc.MarkReady(ctx, staleReady.ID, ReadyReport{BuildVersion: "1.0.0"})
	require.NoError(t, err)

	sweeper := NewSweeper(s, 72*time.Hour, time.Hour)
	sweeper.sweep(ctx)

	_, err = s.GetStartupSession(ctx, staleReady.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	_, err = s.GetStartupSession(ctx, staleOpen.ID)
	assert.NoError(t, err, "OPEN sessions are never swept")
	_, err = s.GetStartupSession(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	s := setupStore(t)
	sweeper := NewSweeper(s, 72*time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
