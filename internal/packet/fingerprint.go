// ABOUTME: Deterministic packet fingerprinting for ETag and redacted log hash
// ABOUTME: Canonicalizes JSON with RFC 8785 so key order never changes the hash

package packet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// ComputeETag hashes the stable content of a packet. The input must exclude
// volatile fields (packet_id, issued_at, the startup block) so that two
// bootstraps against unchanged configuration produce the same tag.
func ComputeETag(v any) (string, error) {
	digest, err := canonicalDigest(v)
	if err != nil {
		return "", fmt.Errorf("computing etag: %w", err)
	}
	return digest, nil
}

// ComputeRedactedHash produces a short fingerprint safe to log: it covers only
// identity fields and the issue time, never configuration content.
func ComputeRedactedHash(principalKey, componentKey, profile, manifest string, issuedAt time.Time) (string, error) {
	safe := map[string]any{
		"principal_key": principalKey,
		"component_key": componentKey,
		"profile":       profile,
		"manifest":      manifest,
		"issued_at":     issuedAt.UTC().Format(time.RFC3339Nano),
	}
	digest, err := canonicalDigest(safe)
	if err != nil {
		return "", fmt.Errorf("computing redacted hash: %w", err)
	}
	return digest[:16], nil
}

func canonicalDigest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
