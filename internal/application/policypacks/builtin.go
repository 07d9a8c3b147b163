// Package policypacks provides the built-in, industry-named PolicyPack
// values (spec.md §6) and a lookup/combination layer on top of them.
package policypacks

import "github.com/relaybot/compiler/internal/domain"

func boolPtr(b bool) *bool { return &b }

// hipaaPack covers health-data handling: encrypted artifacts, redacted
// logs, mandatory audit trail and DLP scanning once PHI is in play.
func hipaaPack() domain.PolicyPack {
	return domain.PolicyPack{
		Industry: "healthcare",
		Version:  "1.0",
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: true, StoreDays: 2190},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: true},
		},
		Rules: []domain.Rule{
			{
				ID:          "hipaa-phi-audit",
				Description: "PHI-touching nodes require an audit log",
				When:        domain.Condition{DataContains: []domain.Classification{domain.PHI}},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlAuditLog, domain.ControlArtifactEncryption}},
			},
			{
				ID:          "hipaa-phi-external-egress-block",
				Description: "PHI must never leave the node through any egress (internal or external)",
				When: domain.Condition{
					DataContains: []domain.Classification{domain.PHI},
					Egress:       boolPtr(true),
				},
				Then: domain.Action{Kind: domain.ActionBlock, Severity: domain.SeverityCritical, Message: "PHI cannot be sent through an egress under the hipaa pack"},
			},
			{
				ID:          "hipaa-phi-dlp",
				Description: "PHI requires DLP scanning before any write",
				When:        domain.Condition{DataContains: []domain.Classification{domain.PHI}, Writes: boolPtr(true)},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlDLPScan}},
			},
		},
	}
}

// soc2Pack covers general SaaS operational-trust controls: audit logging
// and warnings (not blocks) on privileged access.
func soc2Pack() domain.PolicyPack {
	return domain.PolicyPack{
		Industry: "saas",
		Version:  "1.0",
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: false, StoreDays: 365},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: false},
		},
		Rules: []domain.Rule{
			{
				ID:          "soc2-privileged-audit",
				Description: "privileged-access nodes are always audited",
				When:        domain.Condition{Capability: domain.CapabilityPrivilegedAccess},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlAuditLog}},
			},
			{
				ID:          "soc2-deletes-warn",
				Description: "a node capable of deleting data should be reviewed",
				When:        domain.Condition{Capability: domain.CapabilityDeletes},
				Then:        domain.Action{Kind: domain.ActionWarn, Severity: domain.SeverityMedium, Message: "node is capable of deleting data"},
			},
		},
	}
}

// pciDSSPack covers payment-card data: it blocks any egress (internal or
// external) of cardholder data outright, requires DLP scanning when
// cardholder data is written, and requires vault storage for
// credential-grade data.
func pciDSSPack() domain.PolicyPack {
	return domain.PolicyPack{
		Industry: "payments",
		Version:  "1.0",
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: true, StoreDays: 365},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: true},
		},
		Rules: []domain.Rule{
			{
				ID:          "pci-cardholder-egress-block",
				Description: "cardholder data may never leave through any egress (internal or external)",
				When:        domain.Condition{DataContains: []domain.Classification{domain.PCI}, Egress: boolPtr(true)},
				Then:        domain.Action{Kind: domain.ActionBlock, Severity: domain.SeverityCritical, Message: "cardholder data cannot cross an egress under the pci-dss pack"},
			},
			{
				ID:          "pci-credentials-vault",
				Description: "credential-grade data must be vault-stored",
				When:        domain.Condition{DataContains: []domain.Classification{domain.Credentials}},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlVaultStore, domain.ControlAuditLog}},
			},
			{
				ID:          "pci-cardholder-dlp",
				Description: "cardholder data requires DLP scanning on write",
				When:        domain.Condition{DataContains: []domain.Classification{domain.PCI}, Writes: boolPtr(true)},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlDLPScan}},
			},
		},
	}
}

// gdprPack covers EU personal-data handling: warns (rather than blocks) on
// any egress (internal or external) of PII, and requires audit logging plus HITL approval
// for any deletion-capable node (right to erasure workflows matter).
func gdprPack() domain.PolicyPack {
	return domain.PolicyPack{
		Industry: "general",
		Version:  "1.0",
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: true, StoreDays: 90},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: true},
		},
		Rules: []domain.Rule{
			{
				ID:          "gdpr-pii-egress-warn",
				Description: "PII leaving via any egress should be reviewed",
				When:        domain.Condition{DataContains: []domain.Classification{domain.PII}, Egress: boolPtr(true)},
				Then:        domain.Action{Kind: domain.ActionWarn, Severity: domain.SeverityHigh, Message: "PII is leaving through an egress"},
			},
			{
				ID:          "gdpr-deletion-hitl",
				Description: "data deletion requires human-in-the-loop approval and an audit trail",
				When:        domain.Condition{Capability: domain.CapabilityDeletes},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlHITLApproval, domain.ControlAuditLog}},
			},
		},
	}
}

// financePack covers banking/insurance workloads: credential-grade data is
// blocked from any egress (internal or external), and privileged-access nodes require HITL
// approval.
func financePack() domain.PolicyPack {
	return domain.PolicyPack{
		Industry: "finance",
		Version:  "1.0",
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: true, StoreDays: 2555},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: true},
		},
		Rules: []domain.Rule{
			{
				ID:          "finance-credentials-egress-block",
				Description: "credential-grade data must never leave through any egress (internal or external)",
				When:        domain.Condition{DataContains: []domain.Classification{domain.Credentials}, Egress: boolPtr(true)},
				Then:        domain.Action{Kind: domain.ActionBlock, Severity: domain.SeverityCritical, Message: "credentials cannot cross an egress under the finance pack"},
			},
			{
				ID:          "finance-privileged-hitl",
				Description: "privileged-access nodes require human approval",
				When:        domain.Condition{Capability: domain.CapabilityPrivilegedAccess},
				Then:        domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlHITLApproval}},
			},
		},
	}
}

// byID is the canonical set of builtin packs, keyed by their canonical
// (non-aliased) lookup id.
func byID() map[string]func() domain.PolicyPack {
	return map[string]func() domain.PolicyPack{
		"hipaa":    hipaaPack,
		"soc2":     soc2Pack,
		"pci-dss":  pciDSSPack,
		"gdpr":     gdprPack,
		"finance":  financePack,
		"insurance": financePack,
	}
}

// aliases maps an alternate lookup spelling to its canonical id (spec.md
// §6: "healthcare (alias of hipaa)", plus pci_dss and banking). insurance
// is not an alias: it has its own byID entry, built from financePack.
var aliases = map[string]string{
	"healthcare": "hipaa",
	"pci_dss":    "pci-dss",
	"banking":    "finance",
}
