// ABOUTME: Secret reference store methods for required-env surfacing
// ABOUTME: References only; secret values never pass through this system

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateSecretRef creates a new secret reference.
// Returns ErrDuplicateKey if secret_key is already taken.
func (s *SQLiteStore) CreateSecretRef(ctx context.Context, r *SecretRef) error {
	refMeta, err := marshalDoc(r.RefMeta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO secret_refs (id, tenant_key, secret_key, ref_kind, ref_name, ref_meta_json, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.TenantKey,
		r.SecretKey,
		r.RefKind,
		r.RefName,
		refMeta,
		r.Status,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting secret ref: %w", err)
	}

	s.logger.Debug("created secret ref", "id", r.ID, "secret_key", r.SecretKey, "ref_kind", r.RefKind)
	return nil
}

// GetSecretRef retrieves a secret reference by its ID.
func (s *SQLiteStore) GetSecretRef(ctx context.Context, id string) (*SecretRef, error) {
	query := `
		SELECT id, tenant_key, secret_key, ref_kind, ref_name, ref_meta_json, status, created_at
		FROM secret_refs
		WHERE id = ?
	`

	r, err := scanSecretRefRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSecretRefNotFound
	}
	return r, err
}

// ListSecretRefs returns all secret references for a tenant.
func (s *SQLiteStore) ListSecretRefs(ctx context.Context, tenantKey string) ([]*SecretRef, error) {
	query := `
		SELECT id, tenant_key, secret_key, ref_kind, ref_name, ref_meta_json, status, created_at
		FROM secret_refs
		WHERE tenant_key = ?
		ORDER BY secret_key
	`

	return s.querySecretRefs(ctx, query, tenantKey)
}

// ListActiveSecretRefs returns the active secret references for a tenant,
// in stable secret_key order so the packet fingerprint is deterministic.
func (s *SQLiteStore) ListActiveSecretRefs(ctx context.Context, tenantKey string) ([]*SecretRef, error) {
	query := `
		SELECT id, tenant_key, secret_key, ref_kind, ref_name, ref_meta_json, status, created_at
		FROM secret_refs
		WHERE tenant_key = ? AND status = 'active'
		ORDER BY secret_key
	`

	return s.querySecretRefs(ctx, query, tenantKey)
}

// DeleteSecretRef deletes a secret reference by its ID.
func (s *SQLiteStore) DeleteSecretRef(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM secret_refs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting secret ref: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSecretRefNotFound
	}

	s.logger.Debug("deleted secret ref", "id", id)
	return nil
}

func (s *SQLiteStore) querySecretRefs(ctx context.Context, query string, args ...any) ([]*SecretRef, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying secret refs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []*SecretRef
	for rows.Next() {
		r, err := scanSecretRefRow(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating secret ref rows: %w", err)
	}

	return refs, nil
}

func scanSecretRefRow(row rowScanner) (*SecretRef, error) {
	var r SecretRef
	var refMetaRaw sql.NullString
	var createdAtStr string

	err := row.Scan(
		&r.ID,
		&r.TenantKey,
		&r.SecretKey,
		&r.RefKind,
		&r.RefName,
		&refMetaRaw,
		&r.Status,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning secret ref: %w", err)
	}

	if r.RefMeta, err = unmarshalDoc(refMetaRaw); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}

	return &r, nil
}
