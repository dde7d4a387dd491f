// ABOUTME: Tests for binding store methods
// ABOUTME: Verifies the single-active-binding invariant per principal

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBindingDeactivatesPriorActive(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := makePrincipal(t, s, "herald")
	prof := makeProfile(t, s, "worker")
	man := makeManifest(t, s, "local")

	first := makeBinding(t, s, p.ID, prof.ID, man.ID, true)
	second := makeBinding(t, s, p.ID, prof.ID, man.ID, true)

	got, err := s.GetBinding(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "prior binding should be deactivated")

	active, err := s.GetActiveBinding(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestCreateInactiveBindingLeavesActiveAlone(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := makePrincipal(t, s, "herald")
	prof := makeProfile(t, s, "worker")
	man := makeManifest(t, s, "local")

	first := makeBinding(t, s, p.ID, prof.ID, man.ID, true)
	makeBinding(t, s, p.ID, prof.ID, man.ID, false)

	active, err := s.GetActiveBinding(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
}

func TestGetActiveBindingNotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := makePrincipal(t, s, "herald")

	_, err := s.GetActiveBinding(ctx, p.ID)
	assert.ErrorIs(t, err, ErrBindingNotFound)
}

func TestBindingOverridesRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := makePrincipal(t, s, "herald")
	prof := makeProfile(t, s, "worker")
	man := makeManifest(t, s, "local")

	now := prof.CreatedAt
	b := &Binding{
		ID:          "b-override",
		TenantKey:   "default",
		PrincipalID: p.ID,
		ProfileID:   prof.ID,
		ManifestID:  man.ID,
		Overrides: Doc{
			"polling": Doc{"interval_seconds": float64(10)},
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateBinding(ctx, b))

	got, err := s.GetBinding(ctx, "b-override")
	require.NoError(t, err)
	require.NotNil(t, got.Overrides)
	polling, ok := got.Overrides["polling"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(10), polling["interval_seconds"])
}

func TestDeleteBindingCascadeFromPrincipal(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := makePrincipal(t, s, "herald")
	prof := makeProfile(t, s, "worker")
	man := makeManifest(t, s, "local")
	b := makeBinding(t, s, p.ID, prof.ID, man.ID, true)

	require.NoError(t, s.DeletePrincipal(ctx, p.ID))

	_, err := s.GetBinding(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBindingNotFound)
}
