// ABOUTME: Startup session lifecycle service for ready/failed reporting
// ABOUTME: Transitions are terminal and witnessed by a lifecycle receipt

package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bootgate/bootgate/internal/store"
)

// Store is the persistence surface the startup service needs.
type Store interface {
	GetStartupSession(ctx context.Context, id string) (*store.StartupSession, error)
	MarkSessionReady(ctx context.Context, id string, readyAt time.Time, payload store.Doc) error
	MarkSessionFailed(ctx context.Context, id string, failedAt time.Time, payload store.Doc) error
	ListStartupSessions(ctx context.Context, filter store.SessionFilter) ([]*store.StartupSession, error)
}

// ReceiptEmitter mirrors terminal transitions to the external receipt ledger.
type ReceiptEmitter interface {
	EmitTerminal(sess *store.StartupSession)
}

// ReadyReport is a component's declaration that it came up successfully.
type ReadyReport struct {
	BuildVersion string
	Health       string
}

// FailureReport is a component's declaration that startup did not succeed.
type FailureReport struct {
	Error   string
	Details store.Doc
}

// Service handles startup session transitions and lookups.
type Service struct {
	store    Store
	receipts ReceiptEmitter
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a startup service. The receipt emitter may be nil.
func NewService(st Store, receipts ReceiptEmitter) *Service {
	return &Service{
		store:    st,
		receipts: receipts,
		logger:   slog.Default().With("component", "startup"),
		now:      time.Now,
	}
}

// MarkReady transitions a session to READY. Returns store.ErrSessionNotFound
// for unknown sessions and store.ErrSessionNotOpen when the session already
// reached a terminal state.
func (s *Service) MarkReady(ctx context.Context, sessionID string, report ReadyReport) (*store.StartupSession, error) {
	now := s.now().UTC()
	payload := store.Doc{
		"build_version":   report.BuildVersion,
		"acknowledged_at": now.Format(time.RFC3339Nano),
	}
	if report.Health != "" {
		payload["health"] = report.Health
	}

	if err := s.store.MarkSessionReady(ctx, sessionID, now, payload); err != nil {
		return nil, err
	}

	sess, err := s.store.GetStartupSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reloading session after transition: %w", err)
	}

	late := now.After(sess.DeadlineAt)
	s.logger.Info("startup session ready",
		"startup_id", sessionID,
		"component_key", sess.ComponentKey,
		"build_version", report.BuildVersion,
		"past_deadline", late,
	)

	if s.receipts != nil {
		s.receipts.EmitTerminal(sess)
	}
	return sess, nil
}

// MarkFailed transitions a session to FAILED with the same semantics as
// MarkReady.
func (s *Service) MarkFailed(ctx context.Context, sessionID string, report FailureReport) (*store.StartupSession, error) {
	now := s.now().UTC()
	payload := store.Doc{
		"error":           report.Error,
		"acknowledged_at": now.Format(time.RFC3339Nano),
	}
	if len(report.Details) > 0 {
		payload["details"] = report.Details
	}

	if err := s.store.MarkSessionFailed(ctx, sessionID, now, payload); err != nil {
		return nil, err
	}

	sess, err := s.store.GetStartupSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reloading session after transition: %w", err)
	}

	s.logger.Warn("startup session failed",
		"startup_id", sessionID,
		"component_key", sess.ComponentKey,
		"error", report.Error,
	)

	if s.receipts != nil {
		s.receipts.EmitTerminal(sess)
	}
	return sess, nil
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, sessionID string) (*store.StartupSession, error) {
	return s.store.GetStartupSession(ctx, sessionID)
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, filter store.SessionFilter) ([]*store.StartupSession, error) {
	return s.store.ListStartupSessions(ctx, filter)
}
