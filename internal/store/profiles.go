// ABOUTME: Profile store methods for capability/policy bundles
// ABOUTME: Capabilities and policy are stored as JSON document columns

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateProfile creates a new profile in the database.
// Returns ErrDuplicateKey if profile_key is already taken.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *Profile) error {
	capabilities, err := marshalDoc(p.Capabilities)
	if err != nil {
		return err
	}
	policy, err := marshalDoc(p.Policy)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (id, tenant_key, profile_key, capabilities_json, policy_json, startup_sla_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.TenantKey,
		p.ProfileKey,
		capabilities,
		policy,
		p.StartupSLASeconds,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting profile: %w", err)
	}

	s.logger.Debug("created profile", "id", p.ID, "profile_key", p.ProfileKey)
	return nil
}

// GetProfile retrieves a profile by its ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT id, tenant_key, profile_key, capabilities_json, policy_json, startup_sla_seconds, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`

	p, err := scanProfileRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// ListProfiles returns all profiles for a tenant, newest first.
func (s *SQLiteStore) ListProfiles(ctx context.Context, tenantKey string) ([]*Profile, error) {
	query := `
		SELECT id, tenant_key, profile_key, capabilities_json, policy_json, startup_sla_seconds, created_at, updated_at
		FROM profiles
		WHERE tenant_key = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}

	return profiles, nil
}

// DeleteProfile deletes a profile by its ID.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProfileNotFound
	}

	s.logger.Debug("deleted profile", "id", id)
	return nil
}

func scanProfileRow(row rowScanner) (*Profile, error) {
	var p Profile
	var capabilitiesRaw, policyRaw sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&p.ID,
		&p.TenantKey,
		&p.ProfileKey,
		&capabilitiesRaw,
		&policyRaw,
		&p.StartupSLASeconds,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}

	if p.Capabilities, err = unmarshalDoc(capabilitiesRaw); err != nil {
		return nil, err
	}
	if p.Policy, err = unmarshalDoc(policyRaw); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &p, nil
}
