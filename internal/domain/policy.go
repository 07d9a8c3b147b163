package domain

import "regexp"

// Severity ranks a policy warning or block.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ActionKind is the effect a matched rule has.
type ActionKind string

const (
	ActionBlock            ActionKind = "BLOCK"
	ActionWarn             ActionKind = "WARN"
	ActionRequireControls  ActionKind = "REQUIRE_CONTROLS"
)

// Capability names the boolean/mode capability predicates a Condition can
// test (spec.md §3).
type Capability string

const (
	CapabilityEgress           Capability = "egress"
	CapabilityWrites           Capability = "writes"
	CapabilityDeletes          Capability = "deletes"
	CapabilityPrivilegedAccess Capability = "privilegedAccess"
)

// Condition is the conjunction of predicates a Rule's "when" clause
// specifies. Every non-nil/non-empty field must hold for the rule to
// match (spec.md §3, §4.4). Fields left at their zero value are not
// evaluated.
type Condition struct {
	DataContains        []Classification
	NodeType            string
	NodeCategory         string
	Capability           Capability
	Egress               *bool
	Writes               *bool
	Deletes              *bool
	PrivilegedAccess     *bool
	NetworkDomainMatches *regexp.Regexp
}

// Action is the effect applied when a Rule's Condition matches.
type Action struct {
	Kind     ActionKind
	Controls []ControlType
	Severity Severity
	Message  string
}

// EffectiveSeverity returns a's Severity, defaulting to MEDIUM per
// spec.md §3 ("severity ... default MEDIUM").
func (a Action) EffectiveSeverity() Severity {
	if a.Severity == "" {
		return SeverityMedium
	}
	return a.Severity
}

// Rule is one entry of a PolicyPack: a condition plus the action to take
// when it matches a (node, classification, manifest) triple.
type Rule struct {
	ID          string
	Description string
	When        Condition
	Then        Action
}

// LoggingDefaults controls the policy pack's ambient logging posture.
type LoggingDefaults struct {
	Redact    bool
	StoreDays int
}

// ArtifactDefaults controls the policy pack's ambient artifact posture.
type ArtifactDefaults struct {
	EncryptAtRest bool
}

// PolicyDefaults are the tenant-wide defaults a PolicyPack carries
// alongside its explicit rule list.
type PolicyDefaults struct {
	Logging   LoggingDefaults
	Artifacts ArtifactDefaults
}

// PolicyPack is a tenant or industry-specific set of rules plus defaults
// (spec.md §3).
type PolicyPack struct {
	TenantID string
	Version  string
	Industry string
	Defaults PolicyDefaults
	Rules    []Rule
}

// PolicyBlock is one compilation-blocking finding.
type PolicyBlock struct {
	NodeID   string   `json:"nodeId"`
	RuleID   string   `json:"ruleId"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// String renders b in the "[BLOCKED] <message> (node: <nodeId>)" diagnostic
// format (spec.md §7).
func (b PolicyBlock) String() string {
	return "[BLOCKED] " + b.Message + " (node: " + b.NodeID + ")"
}

// PolicyWarning is one non-blocking (unless failOnWarnings) finding. It
// may originate from a matched WARN rule or from a REQUIRE_CONTROLS rule
// naming a control the target manifest does not support.
type PolicyWarning struct {
	NodeID   string   `json:"nodeId"`
	RuleID   string   `json:"ruleId"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// String renders w in the "[<SEVERITY>] <message> (node: <nodeId>)"
// diagnostic format (spec.md §7).
func (w PolicyWarning) String() string {
	return "[" + string(w.Severity) + "] " + w.Message + " (node: " + w.NodeID + ")"
}

// PolicyResult is the output of the Policy Evaluator (spec.md §4.4).
type PolicyResult struct {
	Blocks           []PolicyBlock
	Warnings         []PolicyWarning
	RequiresControls map[string]ControlSet
}

// ShouldBlockCompilation reports whether any block was recorded.
func (r PolicyResult) ShouldBlockCompilation() bool {
	return len(r.Blocks) > 0
}
