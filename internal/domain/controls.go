package domain

import "sort"

// ControlType is the fixed, closed set of mitigation controls the policy
// evaluator can require (spec.md §3).
type ControlType string

const (
	ControlAuditLog           ControlType = "AUDIT_LOG"
	ControlArtifactEncryption ControlType = "ARTIFACT_ENCRYPTION"
	ControlLogRedaction       ControlType = "LOG_REDACTION"
	ControlDLPScan            ControlType = "DLP_SCAN"
	ControlHITLApproval       ControlType = "HITL_APPROVAL"
	ControlMask               ControlType = "MASK"
	ControlRedact             ControlType = "REDACT"
	ControlPseudonymize       ControlType = "PSEUDONYMIZE"
	ControlHash               ControlType = "HASH"
	ControlGeneralize         ControlType = "GENERALIZE"
	ControlEncrypt            ControlType = "ENCRYPT"
	ControlTokenize           ControlType = "TOKENIZE"
	ControlVaultStore         ControlType = "VAULT_STORE"
	ControlPromptGuard        ControlType = "PROMPT_GUARD"
	ControlRateLimit          ControlType = "RATE_LIMIT"
	ControlTimeoutGuard       ControlType = "TIMEOUT_GUARD"
)

// genericControls are always honored by the policy evaluator's
// REQUIRE_CONTROLS action regardless of whether the target manifest lists
// them in requires/supports (spec.md §4.4, testable property 9).
var genericControls = map[ControlType]bool{
	ControlAuditLog:           true,
	ControlDLPScan:            true,
	ControlHITLApproval:       true,
	ControlLogRedaction:       true,
	ControlArtifactEncryption: true,
}

// IsGenericControl reports whether c is always honored regardless of
// manifest support.
func IsGenericControl(c ControlType) bool {
	return genericControls[c]
}

// ControlSet is a deduplicated, insertion-order-agnostic set of controls
// for a single node. Sorted() gives the deterministic ordering the plan
// and its hash require (spec.md §4.6, §9).
type ControlSet map[ControlType]struct{}

func NewControlSet(controls ...ControlType) ControlSet {
	s := make(ControlSet, len(controls))
	for _, c := range controls {
		s[c] = struct{}{}
	}
	return s
}

func (s ControlSet) Add(c ControlType) {
	s[c] = struct{}{}
}

func (s ControlSet) AddAll(cs []ControlType) {
	for _, c := range cs {
		s.Add(c)
	}
}

func (s ControlSet) Has(c ControlType) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the controls in lexicographic order.
func (s ControlSet) Sorted() []ControlType {
	out := make([]ControlType, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
