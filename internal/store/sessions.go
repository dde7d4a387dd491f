// ABOUTME: Startup session store methods with compare-and-swap state transitions
// ABOUTME: Sessions move OPEN to READY/FAILED exactly once; terminal rows are swept by retention

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateStartupSession inserts a new session row. The caller sets status,
// opened_at, deadline_at and mirror_status.
func (s *SQLiteStore) CreateStartupSession(ctx context.Context, sess *StartupSession) error {
	readyPayload, err := marshalDoc(sess.ReadyPayload)
	if err != nil {
		return err
	}
	failurePayload, err := marshalDoc(sess.FailurePayload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO startup_sessions (
			id, tenant_key, deployment_key, subject_principal_key, component_key,
			profile_key, manifest_key, packet_etag, packet_hash_redacted, status,
			opened_at, deadline_at, ready_at, failed_at, ready_payload_json,
			failure_payload_json, mirror_status, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sess.TenantKey,
		sess.DeploymentKey,
		sess.SubjectPrincipalKey,
		sess.ComponentKey,
		sess.ProfileKey,
		sess.ManifestKey,
		sess.PacketETag,
		sess.PacketHashRedacted,
		sess.Status,
		formatTime(sess.OpenedAt),
		formatTime(sess.DeadlineAt),
		formatNullableTime(sess.ReadyAt),
		formatNullableTime(sess.FailedAt),
		readyPayload,
		failurePayload,
		sess.MirrorStatus,
		formatTime(sess.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting startup session: %w", err)
	}

	s.logger.Debug("created startup session",
		"id", sess.ID,
		"component_key", sess.ComponentKey,
		"deadline_at", sess.DeadlineAt,
	)
	return nil
}

// GetStartupSession retrieves a session by its ID.
func (s *SQLiteStore) GetStartupSession(ctx context.Context, id string) (*StartupSession, error) {
	query := sessionSelect + ` WHERE id = ?`

	sess, err := scanSessionRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// MarkSessionReady transitions a session from OPEN to READY.
// The status check and write happen in one UPDATE so two concurrent
// transitions cannot both succeed: the loser sees zero rows affected and
// gets ErrSessionNotOpen (or ErrSessionNotFound if the row never existed).
func (s *SQLiteStore) MarkSessionReady(ctx context.Context, id string, readyAt time.Time, payload Doc) error {
	return s.transitionSession(ctx, id, SessionReady, readyAt, payload)
}

// MarkSessionFailed transitions a session from OPEN to FAILED with the same
// compare-and-swap guarantee as MarkSessionReady.
func (s *SQLiteStore) MarkSessionFailed(ctx context.Context, id string, failedAt time.Time, payload Doc) error {
	return s.transitionSession(ctx, id, SessionFailed, failedAt, payload)
}

func (s *SQLiteStore) transitionSession(ctx context.Context, id, target string, at time.Time, payload Doc) error {
	payloadJSON, err := marshalDoc(payload)
	if err != nil {
		return err
	}

	var query string
	switch target {
	case SessionReady:
		query = `UPDATE startup_sessions SET status = 'READY', ready_at = ?, ready_payload_json = ? WHERE id = ? AND status = 'OPEN'`
	case SessionFailed:
		query = `UPDATE startup_sessions SET status = 'FAILED', failed_at = ?, failure_payload_json = ? WHERE id = ? AND status = 'OPEN'`
	default:
		return fmt.Errorf("invalid target status %q", target)
	}

	result, err := s.db.ExecContext(ctx, query, formatTime(at), payloadJSON, id)
	if err != nil {
		return fmt.Errorf("transitioning startup session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing row from a lost race / duplicate report.
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM startup_sessions WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("checking session status: %w", err)
		}
		return ErrSessionNotOpen
	}

	s.logger.Debug("transitioned startup session", "id", id, "status", target)
	return nil
}

// SetSessionMirrorStatus records whether the lifecycle receipt reached the
// external ledger. Best effort: the transition itself has already committed.
func (s *SQLiteStore) SetSessionMirrorStatus(ctx context.Context, id string, mirrorStatus string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE startup_sessions SET mirror_status = ? WHERE id = ?`,
		mirrorStatus, id,
	)
	if err != nil {
		return fmt.Errorf("updating mirror status: %w", err)
	}
	return nil
}

// ListStartupSessions returns sessions matching the filter, newest first.
func (s *SQLiteStore) ListStartupSessions(ctx context.Context, filter SessionFilter) ([]*StartupSession, error) {
	query := sessionSelect + `
		WHERE (? IS NULL OR tenant_key = ?)
		  AND (? IS NULL OR status = ?)
		  AND (? IS NULL OR component_key = ?)
		ORDER BY opened_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query,
		filter.TenantKey, filter.TenantKey,
		filter.Status, filter.Status,
		filter.ComponentKey, filter.ComponentKey,
	)
	if err != nil {
		return nil, fmt.Errorf("querying startup sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*StartupSession
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

// DeleteExpiredSessions removes terminal sessions opened before the cutoff.
// OPEN sessions are never deleted regardless of age. Returns the number of
// rows removed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM startup_sessions
		WHERE status IN ('READY', 'FAILED') AND opened_at < ?
	`

	result, err := s.db.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected, nil
}

const sessionSelect = `
	SELECT id, tenant_key, deployment_key, subject_principal_key, component_key,
	       profile_key, manifest_key, packet_etag, packet_hash_redacted, status,
	       opened_at, deadline_at, ready_at, failed_at, ready_payload_json,
	       failure_payload_json, mirror_status, created_at
	FROM startup_sessions`

func scanSessionRow(row rowScanner) (*StartupSession, error) {
	var sess StartupSession
	var openedAtStr, deadlineAtStr, createdAtStr string
	var readyAt, failedAt, readyPayloadRaw, failurePayloadRaw sql.NullString

	err := row.Scan(
		&sess.ID,
		&sess.TenantKey,
		&sess.DeploymentKey,
		&sess.SubjectPrincipalKey,
		&sess.ComponentKey,
		&sess.ProfileKey,
		&sess.ManifestKey,
		&sess.PacketETag,
		&sess.PacketHashRedacted,
		&sess.Status,
		&openedAtStr,
		&deadlineAtStr,
		&readyAt,
		&failedAt,
		&readyPayloadRaw,
		&failurePayloadRaw,
		&sess.MirrorStatus,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning startup session: %w", err)
	}

	if sess.OpenedAt, err = parseTime(openedAtStr); err != nil {
		return nil, err
	}
	if sess.DeadlineAt, err = parseTime(deadlineAtStr); err != nil {
		return nil, err
	}
	if sess.ReadyAt, err = parseNullableTime(readyAt); err != nil {
		return nil, err
	}
	if sess.FailedAt, err = parseNullableTime(failedAt); err != nil {
		return nil, err
	}
	if sess.ReadyPayload, err = unmarshalDoc(readyPayloadRaw); err != nil {
		return nil, err
	}
	if sess.FailurePayload, err = unmarshalDoc(failurePayloadRaw); err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}

	return &sess, nil
}

// sessionStatusValues are the accepted status filter values, exported for
// handler-side validation.
func ValidSessionStatus(status string) bool {
	switch strings.ToUpper(status) {
	case SessionOpen, SessionReady, SessionFailed:
		return true
	}
	return false
}
