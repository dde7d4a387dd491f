// ABOUTME: Startup lifecycle receipt payload construction
// ABOUTME: Mirrors session open and terminal transitions into ledger receipts

package receipts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bootgate/bootgate/internal/store"
)

// Receipt phases and statuses understood by the ledger.
const (
	PhaseAccepted = "accepted"
	PhaseComplete = "complete"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// BuildStartupReceipt assembles a lifecycle receipt for a startup session.
// The accepted phase carries no outcome; completion carries the outcome text
// and timestamp.
func BuildStartupReceipt(sess *store.StartupSession, phase, status, outcomeText string, completedAt *time.Time) store.Doc {
	tenant := sess.TenantKey
	if tenant == "" {
		tenant = "default"
	}

	receipt := store.Doc{
		"schema_version":       "1.0",
		"tenant_id":            tenant,
		"receipt_id":           uuid.NewString(),
		"task_id":              fmt.Sprintf("startup-%s", sess.ID),
		"parent_task_id":       "NA",
		"caused_by_receipt_id": "NA",
		"dedupe_key":           fmt.Sprintf("startup:%s:%s", sess.ID, phase),
		"attempt":              0,
		"from_principal":       sess.SubjectPrincipalKey,
		"for_principal":        sess.SubjectPrincipalKey,
		"source_system":        "bootgate",
		"recipient_ai":         sess.ComponentKey,
		"trust_domain":         "default",
		"phase":                phase,
		"status":               status,
		"realtime":             false,
		"task_type":            "startup",
		"task_summary":         fmt.Sprintf("Startup %s for %s", phase, sess.ComponentKey),
		"task_body":            fmt.Sprintf("Startup session %s for %s", sess.ID, sess.ComponentKey),
		"inputs": store.Doc{
			"startup_id":     sess.ID,
			"component_key":  sess.ComponentKey,
			"profile_key":    sess.ProfileKey,
			"manifest_key":   sess.ManifestKey,
			"deployment_key": sess.DeploymentKey,
			"packet_etag":    sess.PacketETag,
		},
		"expected_outcome_kind": "response_text",
		"expected_artifact_mime": "NA",
		"outcome_text":          outcomeText,
		"artifact_location":     "NA",
		"artifact_pointer":      "NA",
		"artifact_checksum":     "NA",
		"artifact_size_bytes":   0,
		"artifact_mime":         "NA",
		"escalation_class":      "NA",
		"escalation_reason":     "NA",
		"escalation_to":         "NA",
		"retry_requested":       false,
		"created_at":            sess.OpenedAt.UTC().Format(time.RFC3339Nano),
		"stored_at":             nil,
		"started_at":            sess.OpenedAt.UTC().Format(time.RFC3339Nano),
		"completed_at":          nil,
		"read_at":               nil,
		"archived_at":           nil,
		"metadata": store.Doc{
			"startup_id":    sess.ID,
			"component_key": sess.ComponentKey,
			"mirror_status": sess.MirrorStatus,
		},
	}

	if phase == PhaseAccepted {
		receipt["status"] = "NA"
		receipt["outcome_kind"] = "NA"
		receipt["outcome_text"] = "NA"
	} else {
		receipt["outcome_kind"] = "response_text"
		if completedAt != nil {
			receipt["completed_at"] = completedAt.UTC().Format(time.RFC3339Nano)
		}
	}

	return receipt
}
