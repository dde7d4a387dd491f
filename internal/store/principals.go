// ABOUTME: Principal and API key store methods for bootgate identity records
// ABOUTME: Principals are looked up by id or auth_subject; API keys by public key id

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreatePrincipal creates a new principal in the database.
// Returns ErrDuplicateKey if principal_key or auth_subject is already taken.
func (s *SQLiteStore) CreatePrincipal(ctx context.Context, p *Principal) error {
	query := `
		INSERT INTO principals (id, tenant_key, principal_key, auth_subject, principal_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.TenantKey,
		p.PrincipalKey,
		p.AuthSubject,
		p.PrincipalType,
		p.Status,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting principal: %w", err)
	}

	s.logger.Debug("created principal", "id", p.ID, "principal_key", p.PrincipalKey)
	return nil
}

// GetPrincipal retrieves a principal by its ID.
func (s *SQLiteStore) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	query := `
		SELECT id, tenant_key, principal_key, auth_subject, principal_type, status, created_at, updated_at
		FROM principals
		WHERE id = ?
	`

	return scanPrincipal(s.db.QueryRowContext(ctx, query, id))
}

// GetPrincipalByAuthSubject retrieves a principal by its credential subject.
func (s *SQLiteStore) GetPrincipalByAuthSubject(ctx context.Context, authSubject string) (*Principal, error) {
	query := `
		SELECT id, tenant_key, principal_key, auth_subject, principal_type, status, created_at, updated_at
		FROM principals
		WHERE auth_subject = ?
	`

	return scanPrincipal(s.db.QueryRowContext(ctx, query, authSubject))
}

// ListPrincipals returns all principals for a tenant, newest first.
func (s *SQLiteStore) ListPrincipals(ctx context.Context, tenantKey string) ([]*Principal, error) {
	query := `
		SELECT id, tenant_key, principal_key, auth_subject, principal_type, status, created_at, updated_at
		FROM principals
		WHERE tenant_key = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("querying principals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var principals []*Principal
	for rows.Next() {
		p, err := scanPrincipalRow(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating principal rows: %w", err)
	}

	return principals, nil
}

// DeletePrincipal deletes a principal by its ID. Bindings and API keys
// referencing it are removed by the schema's cascade rules.
func (s *SQLiteStore) DeletePrincipal(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting principal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrPrincipalNotFound
	}

	s.logger.Debug("deleted principal", "id", id)
	return nil
}

// CreateAPIKey stores a new API key record. Only the bcrypt hash of the
// secret part is stored; the caller holds the plaintext.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, k *APIKey) error {
	query := `
		INSERT INTO api_keys (id, tenant_key, key_id, secret_hash, principal_id, name, status, last_used_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		k.ID,
		k.TenantKey,
		k.KeyID,
		k.SecretHash,
		k.PrincipalID,
		k.Name,
		k.Status,
		formatNullableTime(k.LastUsedAt),
		formatNullableTime(k.ExpiresAt),
		formatTime(k.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	s.logger.Debug("created api key", "id", k.ID, "key_id", k.KeyID, "principal_id", k.PrincipalID)
	return nil
}

// GetAPIKeyByKeyID retrieves an API key by its public key identifier.
func (s *SQLiteStore) GetAPIKeyByKeyID(ctx context.Context, keyID string) (*APIKey, error) {
	query := `
		SELECT id, tenant_key, key_id, secret_hash, principal_id, name, status, last_used_at, expires_at, created_at
		FROM api_keys
		WHERE key_id = ?
	`

	var k APIKey
	var lastUsedAt, expiresAt sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, keyID).Scan(
		&k.ID,
		&k.TenantKey,
		&k.KeyID,
		&k.SecretHash,
		&k.PrincipalID,
		&k.Name,
		&k.Status,
		&lastUsedAt,
		&expiresAt,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning api key: %w", err)
	}

	if k.LastUsedAt, err = parseNullableTime(lastUsedAt); err != nil {
		return nil, err
	}
	if k.ExpiresAt, err = parseNullableTime(expiresAt); err != nil {
		return nil, err
	}
	if k.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}

	return &k, nil
}

// TouchAPIKey updates the key's last_used_at timestamp. Best effort: callers
// may ignore the error.
func (s *SQLiteStore) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		formatTime(usedAt), id,
	)
	if err != nil {
		return fmt.Errorf("touching api key: %w", err)
	}
	return nil
}

// DeleteAPIKey deletes an API key by its ID.
func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row *sql.Row) (*Principal, error) {
	p, err := scanPrincipalRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrincipalNotFound
	}
	return p, err
}

func scanPrincipalRow(row rowScanner) (*Principal, error) {
	var p Principal
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&p.ID,
		&p.TenantKey,
		&p.PrincipalKey,
		&p.AuthSubject,
		&p.PrincipalType,
		&p.Status,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning principal: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &p, nil
}
