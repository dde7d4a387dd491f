// ABOUTME: Audit log store methods recording admin mutations
// ABOUTME: Append-only; failures are logged by callers and never block the mutation

package store

import (
	"context"
	"fmt"
)

// AppendAuditLog records an admin mutation. The audit log is append-only;
// there is no update or delete path.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, entry *AuditEntry) error {
	detail, err := marshalDoc(entry.Detail)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_log (id, tenant_key, ts, action, resource_type, resource_id, resource_key, actor_principal_key, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TenantKey,
		formatTime(entry.Timestamp),
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.ResourceKey,
		entry.ActorPrincipalKey,
		detail,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}
