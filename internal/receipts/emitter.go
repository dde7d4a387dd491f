// ABOUTME: Receipt emitter mirroring startup lifecycle events to the ledger
// ABOUTME: Best effort: failures are logged and swallowed, never surfaced to callers

package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bootgate/bootgate/internal/store"
)

// MirrorStore records whether a session's receipt reached the ledger.
type MirrorStore interface {
	SetSessionMirrorStatus(ctx context.Context, id string, mirrorStatus string) error
}

// Emitter builds and submits lifecycle receipts. A bootstrap or startup
// transition must never fail because the ledger is down, so every method
// swallows errors after logging them.
type Emitter struct {
	client  *Client
	store   MirrorStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewEmitter creates a receipt emitter.
func NewEmitter(client *Client, st MirrorStore, timeout time.Duration) *Emitter {
	return &Emitter{
		client:  client,
		store:   st,
		logger:  slog.Default().With("component", "receipts"),
		timeout: timeout,
	}
}

// EmitOpen mirrors a freshly opened session as an accepted-phase receipt.
func (e *Emitter) EmitOpen(sess *store.StartupSession) {
	receipt := BuildStartupReceipt(sess, PhaseAccepted, "NA", "NA", nil)
	go e.submit(sess, PhaseAccepted, receipt)
}

// EmitTerminal mirrors a READY or FAILED transition as a complete-phase
// receipt.
func (e *Emitter) EmitTerminal(sess *store.StartupSession) {
	var status, outcome string
	var completedAt *time.Time
	switch sess.Status {
	case store.SessionReady:
		status = StatusOK
		outcome = fmt.Sprintf("Component %s reported ready", sess.ComponentKey)
		completedAt = sess.ReadyAt
	case store.SessionFailed:
		status = StatusFailed
		outcome = fmt.Sprintf("Component %s reported startup failure", sess.ComponentKey)
		completedAt = sess.FailedAt
	default:
		e.logger.Warn("terminal receipt requested for non-terminal session",
			"startup_id", sess.ID, "status", sess.Status)
		return
	}

	receipt := BuildStartupReceipt(sess, PhaseComplete, status, outcome, completedAt)
	go e.submit(sess, PhaseComplete, receipt)
}

// submit runs detached from the caller's request: the transition has already
// committed, so mirroring happens in the background with its own deadline and
// never delays the caller-visible response.
func (e *Emitter) submit(sess *store.StartupSession, phase string, receipt store.Doc) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.client.Submit(ctx, receipt); err != nil {
		e.logger.Warn("receipt emission failed",
			"startup_id", sess.ID,
			"phase", phase,
			"error", err,
		)
		return
	}

	e.logger.Info("receipt emitted",
		"startup_id", sess.ID,
		"phase", phase,
		"receipt_id", receipt["receipt_id"],
	)

	if err := e.store.SetSessionMirrorStatus(ctx, sess.ID, store.MirrorEmitted); err != nil {
		e.logger.Warn("recording mirror status failed", "startup_id", sess.ID, "error", err)
	}
}
