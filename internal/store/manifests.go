// ABOUTME: Manifest store methods for deployment world descriptions
// ABOUTME: Environment, services, memory map, polling and schemas are JSON columns

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateManifest creates a new manifest in the database.
// Returns ErrDuplicateKey if manifest_key is already taken.
func (s *SQLiteStore) CreateManifest(ctx context.Context, m *Manifest) error {
	environment, err := marshalDoc(m.Environment)
	if err != nil {
		return err
	}
	services, err := marshalDoc(m.Services)
	if err != nil {
		return err
	}
	memoryMap, err := marshalDoc(m.MemoryMap)
	if err != nil {
		return err
	}
	polling, err := marshalDoc(m.Polling)
	if err != nil {
		return err
	}
	schemas, err := marshalDoc(m.Schemas)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO manifests (id, tenant_key, manifest_key, deployment_key, environment_json, services_json, memory_map_json, polling_json, schemas_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		m.ID,
		m.TenantKey,
		m.ManifestKey,
		m.DeploymentKey,
		environment,
		services,
		memoryMap,
		polling,
		schemas,
		m.Version,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting manifest: %w", err)
	}

	s.logger.Debug("created manifest", "id", m.ID, "manifest_key", m.ManifestKey, "version", m.Version)
	return nil
}

// GetManifest retrieves a manifest by its ID.
func (s *SQLiteStore) GetManifest(ctx context.Context, id string) (*Manifest, error) {
	query := `
		SELECT id, tenant_key, manifest_key, deployment_key, environment_json, services_json, memory_map_json, polling_json, schemas_json, version, created_at, updated_at
		FROM manifests
		WHERE id = ?
	`

	m, err := scanManifestRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrManifestNotFound
	}
	return m, err
}

// ListManifests returns all manifests for a tenant, newest first.
func (s *SQLiteStore) ListManifests(ctx context.Context, tenantKey string) ([]*Manifest, error) {
	query := `
		SELECT id, tenant_key, manifest_key, deployment_key, environment_json, services_json, memory_map_json, polling_json, schemas_json, version, created_at, updated_at
		FROM manifests
		WHERE tenant_key = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var manifests []*Manifest
	for rows.Next() {
		m, err := scanManifestRow(rows)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifest rows: %w", err)
	}

	return manifests, nil
}

// DeleteManifest deletes a manifest by its ID.
func (s *SQLiteStore) DeleteManifest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM manifests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting manifest: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrManifestNotFound
	}

	s.logger.Debug("deleted manifest", "id", id)
	return nil
}

func scanManifestRow(row rowScanner) (*Manifest, error) {
	var m Manifest
	var environmentRaw, servicesRaw, memoryMapRaw, pollingRaw, schemasRaw sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&m.ID,
		&m.TenantKey,
		&m.ManifestKey,
		&m.DeploymentKey,
		&environmentRaw,
		&servicesRaw,
		&memoryMapRaw,
		&pollingRaw,
		&schemasRaw,
		&m.Version,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}

	if m.Environment, err = unmarshalDoc(environmentRaw); err != nil {
		return nil, err
	}
	if m.Services, err = unmarshalDoc(servicesRaw); err != nil {
		return nil, err
	}
	if m.MemoryMap, err = unmarshalDoc(memoryMapRaw); err != nil {
		return nil, err
	}
	if m.Polling, err = unmarshalDoc(pollingRaw); err != nil {
		return nil, err
	}
	if m.Schemas, err = unmarshalDoc(schemasRaw); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &m, nil
}
