// ABOUTME: Welcome packet types returned to components at bootstrap
// ABOUTME: Describe-only world truth; carries no work items or dispatch payloads

package packet

import (
	"time"

	"github.com/bootgate/bootgate/internal/store"
)

// RequiredEnv points a component at a secret it must resolve itself.
// Only the reference travels in the packet, never the value.
type RequiredEnv struct {
	SecretKey string    `json:"secret_key"`
	RefKind   string    `json:"ref_kind"`
	RefName   string    `json:"ref_name"`
	RefMeta   store.Doc `json:"ref_meta,omitempty"`
}

// StartupBlock tells the component which lifecycle session was opened for it
// and when it must report back.
type StartupBlock struct {
	StartupID  string    `json:"startup_id"`
	Status     string    `json:"status"`
	DeadlineAt time.Time `json:"deadline_at"`
	Followup   []string  `json:"followup"`
}

// StartupFollowup lists the endpoints a component must call to close its
// startup session.
var StartupFollowup = []string{"/v1/startup/ready", "/v1/startup/failed"}

// WelcomePacket is the full bootstrap response: identity echo, merged
// configuration groups, secret references and the startup session handle.
type WelcomePacket struct {
	PacketID        string        `json:"packet_id"`
	PacketETag      string        `json:"packet_etag"`
	IssuedAt        time.Time     `json:"issued_at"`
	PrincipalKey    string        `json:"principal_key"`
	ComponentKey    string        `json:"component_key"`
	Profile         string        `json:"profile"`
	Manifest        string        `json:"manifest"`
	ManifestVersion int           `json:"manifest_version"`
	Capabilities    store.Doc     `json:"capabilities"`
	Policy          store.Doc     `json:"policy"`
	Services        store.Doc     `json:"services"`
	MemoryMap       store.Doc     `json:"memory_map"`
	Polling         store.Doc     `json:"polling"`
	Schemas         store.Doc     `json:"schemas"`
	RequiredEnv     []RequiredEnv `json:"required_env"`
	Startup         StartupBlock  `json:"startup"`
}

// Groups is the set of override-mergeable configuration groups. Binding
// overrides may only target these; unknown groups in an override document are
// ignored.
type Groups struct {
	Capabilities store.Doc
	Policy       store.Doc
	Services     store.Doc
	MemoryMap    store.Doc
	Polling      store.Doc
	Schemas      store.Doc
}

// ApplyOverrides overlays binding overrides onto the base groups. The merge
// is shallow per group: a top-level key in an override group replaces the
// whole value under that key, nested maps are not merged further. The base
// groups are not mutated.
func ApplyOverrides(base Groups, overrides store.Doc) Groups {
	merged := Groups{
		Capabilities: overlay(base.Capabilities, overrides, "capabilities"),
		Policy:       overlay(base.Policy, overrides, "policy"),
		Services:     overlay(base.Services, overrides, "services"),
		MemoryMap:    overlay(base.MemoryMap, overrides, "memory_map"),
		Polling:      overlay(base.Polling, overrides, "polling"),
		Schemas:      overlay(base.Schemas, overrides, "schemas"),
	}
	return merged
}

// MergedDoc flattens the groups back into one document, used for post-merge
// safety scanning.
func (g Groups) MergedDoc() store.Doc {
	return store.Doc{
		"capabilities": g.Capabilities,
		"policy":       g.Policy,
		"services":     g.Services,
		"memory_map":   g.MemoryMap,
		"polling":      g.Polling,
		"schemas":      g.Schemas,
	}
}

func overlay(base store.Doc, overrides store.Doc, group string) store.Doc {
	out := make(store.Doc, len(base))
	for k, v := range base {
		out[k] = v
	}
	if overrides == nil {
		return out
	}
	raw, ok := overrides[group]
	if !ok {
		return out
	}
	overlayDoc, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for k, v := range overlayDoc {
		out[k] = v
	}
	return out
}
