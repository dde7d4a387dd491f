// ABOUTME: Binding store methods linking principals to profiles and manifests
// ABOUTME: Creating an active binding deactivates prior active bindings in one transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateBinding creates a new binding. When the binding is active, any prior
// active bindings for the same principal are deactivated in the same
// transaction, so the principal never has more than one active binding and
// never transiently has zero during an activation.
func (s *SQLiteStore) CreateBinding(ctx context.Context, b *Binding) error {
	overrides, err := marshalDoc(b.Overrides)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if b.Active {
		_, err = tx.ExecContext(ctx,
			`UPDATE bindings SET active = 0, updated_at = ? WHERE principal_id = ? AND active = 1`,
			formatTime(b.UpdatedAt), b.PrincipalID,
		)
		if err != nil {
			return fmt.Errorf("deactivating prior bindings: %w", err)
		}
	}

	query := `
		INSERT INTO bindings (id, tenant_key, principal_id, profile_id, manifest_id, overrides_json, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		b.ID,
		b.TenantKey,
		b.PrincipalID,
		b.ProfileID,
		b.ManifestID,
		overrides,
		b.Active,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting binding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing binding: %w", err)
	}

	s.logger.Debug("created binding", "id", b.ID, "principal_id", b.PrincipalID, "active", b.Active)
	return nil
}

// GetBinding retrieves a binding by its ID.
func (s *SQLiteStore) GetBinding(ctx context.Context, id string) (*Binding, error) {
	query := `
		SELECT id, tenant_key, principal_id, profile_id, manifest_id, overrides_json, active, created_at, updated_at
		FROM bindings
		WHERE id = ?
	`

	b, err := scanBindingRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBindingNotFound
	}
	return b, err
}

// GetActiveBinding retrieves the single active binding for a principal.
// Returns ErrBindingNotFound when the principal has no active binding.
func (s *SQLiteStore) GetActiveBinding(ctx context.Context, principalID string) (*Binding, error) {
	query := `
		SELECT id, tenant_key, principal_id, profile_id, manifest_id, overrides_json, active, created_at, updated_at
		FROM bindings
		WHERE principal_id = ? AND active = 1
		LIMIT 1
	`

	b, err := scanBindingRow(s.db.QueryRowContext(ctx, query, principalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBindingNotFound
	}
	return b, err
}

// ListBindings returns all bindings for a tenant, newest first.
func (s *SQLiteStore) ListBindings(ctx context.Context, tenantKey string) ([]*Binding, error) {
	query := `
		SELECT id, tenant_key, principal_id, profile_id, manifest_id, overrides_json, active, created_at, updated_at
		FROM bindings
		WHERE tenant_key = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("querying bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bindings []*Binding
	for rows.Next() {
		b, err := scanBindingRow(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating binding rows: %w", err)
	}

	return bindings, nil
}

// DeleteBinding deletes a binding by its ID.
func (s *SQLiteStore) DeleteBinding(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting binding: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBindingNotFound
	}

	s.logger.Debug("deleted binding", "id", id)
	return nil
}

func scanBindingRow(row rowScanner) (*Binding, error) {
	var b Binding
	var overridesRaw sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&b.ID,
		&b.TenantKey,
		&b.PrincipalID,
		&b.ProfileID,
		&b.ManifestID,
		&overridesRaw,
		&b.Active,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning binding: %w", err)
	}

	if b.Overrides, err = unmarshalDoc(overridesRaw); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &b, nil
}
