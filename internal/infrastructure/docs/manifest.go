package docs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/relaybot/compiler/internal/domain"
)

type retryPolicyDoc struct {
	Max       int `json:"max" yaml:"max"`
	BackoffMs int `json:"backoffMs" yaml:"backoffMs"`
}

type runtimeProfileDoc struct {
	Idempotent   bool           `json:"idempotent" yaml:"idempotent"`
	Retryable    bool           `json:"retryable" yaml:"retryable"`
	DefaultRetry retryPolicyDoc `json:"defaultRetry" yaml:"defaultRetry"`
	TimeoutMs    int            `json:"timeoutMs" yaml:"timeoutMs"`
}

type networkCapabilityDoc struct {
	AllowDomains []string `json:"allowDomains,omitempty" yaml:"allowDomains,omitempty"`
	DenyDomains  []string `json:"denyDomains,omitempty" yaml:"denyDomains,omitempty"`
}

type capabilitiesDoc struct {
	Egress           string               `json:"egress" yaml:"egress" validate:"omitempty,oneof=NONE INTERNAL EXTERNAL"`
	Writes           string               `json:"writes" yaml:"writes" validate:"omitempty,oneof=NONE INTERNAL EXTERNAL"`
	Deletes          bool                 `json:"deletes" yaml:"deletes"`
	PrivilegedAccess bool                 `json:"privilegedAccess" yaml:"privilegedAccess"`
	Network          networkCapabilityDoc `json:"network" yaml:"network"`
}

type dataEffectDoc struct {
	Consumes                     []string `json:"consumes" yaml:"consumes" validate:"dive,oneof=UNCLASSIFIED PII PHI PCI CREDENTIALS"`
	Produces                     []string `json:"produces" yaml:"produces" validate:"dive,oneof=UNCLASSIFIED PII PHI PCI CREDENTIALS"`
	Propagation                  string   `json:"propagation" yaml:"propagation" validate:"required,oneof=NONE PASS_THROUGH DERIVE TRANSFORM"`
	OutputClassificationOverride string   `json:"outputClassificationOverride,omitempty" yaml:"outputClassificationOverride,omitempty"`
}

type controlsProfileDoc struct {
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Supports []string `json:"supports,omitempty" yaml:"supports,omitempty"`
}

// nodeManifestDoc is the wire shape of one domain.NodeManifest, keyed by
// node type in manifestFileDoc.
type nodeManifestDoc struct {
	Data         dataEffectDoc      `json:"data" yaml:"data" validate:"required"`
	Capabilities capabilitiesDoc    `json:"capabilities" yaml:"capabilities"`
	Controls     controlsProfileDoc `json:"controls" yaml:"controls"`
	Runtime      runtimeProfileDoc  `json:"runtime" yaml:"runtime"`
}

type manifestFileDoc struct {
	Manifests map[string]nodeManifestDoc `json:"manifests" yaml:"manifests" validate:"required,dive"`
}

// LoadManifests reads every *.yaml/*.yml/*.json file in dir and merges
// their "manifests" maps into a single domain.ManifestRegistry, keyed by
// node type.
func LoadManifests(dir string) (*domain.ManifestRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]domain.NodeManifest)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		var doc manifestFileDoc
		path := filepath.Join(dir, entry.Name())
		if err := decodeFile(path, &doc); err != nil {
			return nil, err
		}
		if err := validatorInstance().Struct(doc); err != nil {
			return nil, loadDocValidationError("manifests", err)
		}
		for nodeType, m := range doc.Manifests {
			byType[nodeType] = convertNodeManifest(m)
		}
	}

	return domain.NewManifestRegistry(byType), nil
}

func convertNodeManifest(m nodeManifestDoc) domain.NodeManifest {
	effect := domain.DataEffect{
		Consumes:    toClassifications(m.Data.Consumes),
		Produces:    toClassifications(m.Data.Produces),
		Propagation: domain.PropagationMode(m.Data.Propagation),
	}
	if m.Data.OutputClassificationOverride != "" {
		c := domain.Classification(m.Data.OutputClassificationOverride)
		effect.OutputClassificationOverride = &c
	}

	return domain.NodeManifest{
		Data: effect,
		Capabilities: domain.Capabilities{
			Egress:  domain.Mode(orDefault(m.Capabilities.Egress, string(domain.ModeNone))),
			Writes:  domain.Mode(orDefault(m.Capabilities.Writes, string(domain.ModeNone))),
			Deletes: m.Capabilities.Deletes,
			PrivilegedAccess: m.Capabilities.PrivilegedAccess,
			Network: domain.NetworkCapability{
				AllowDomains: m.Capabilities.Network.AllowDomains,
				DenyDomains:  m.Capabilities.Network.DenyDomains,
			},
		},
		Controls: domain.ControlsProfile{
			Requires: toControlTypes(m.Controls.Requires),
			Supports: toControlTypes(m.Controls.Supports),
		},
		Runtime: domain.RuntimeProfile{
			Idempotent: m.Runtime.Idempotent,
			Retryable:  m.Runtime.Retryable,
			DefaultRetry: domain.RetryPolicy{
				Max:       m.Runtime.DefaultRetry.Max,
				BackoffMs: m.Runtime.DefaultRetry.BackoffMs,
			},
			TimeoutMs: m.Runtime.TimeoutMs,
		},
	}
}

func toClassifications(ss []string) []domain.Classification {
	out := make([]domain.Classification, len(ss))
	for i, s := range ss {
		out[i] = domain.Classification(s)
	}
	return out
}

func toControlTypes(ss []string) []domain.ControlType {
	out := make([]domain.ControlType, len(ss))
	for i, s := range ss {
		out[i] = domain.ControlType(s)
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
