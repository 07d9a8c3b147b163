package compiler

import (
	"fmt"
	"sort"

	"github.com/relaybot/compiler/internal/domain"
)

// unconditionalThresholds maps the minimum max(in,out) classification at
// which each always-on control is injected, independent of any policy
// pack default (spec.md §4.4, "automatic control injection").
var unconditionalThresholds = []struct {
	min     domain.Classification
	control domain.ControlType
}{
	{domain.PII, domain.ControlAuditLog},
	{domain.Credentials, domain.ControlVaultStore},
}

// EvaluatePolicies runs the Policy Evaluator (spec.md §4.4): auto-required
// manifest controls plus every PolicyPack rule whose Condition matches a
// (node, classification, manifest) triple, plus automatic classification-
// derived control injection.
func EvaluatePolicies(cfg *domain.CFG, registry *domain.ManifestRegistry, classifications map[string]domain.ClassificationPair, pack domain.PolicyPack) domain.PolicyResult {
	result := domain.PolicyResult{RequiresControls: make(map[string]domain.ControlSet)}

	// cfg.NodesByID is a Go map; iterate its ids in sorted order so the
	// accumulated Blocks/Warnings lists (and therefore the plan hash) never
	// depend on map iteration order (spec.md §5, §9).
	ids := make([]string, 0, len(cfg.NodesByID))
	for id := range cfg.NodesByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := cfg.NodesByID[id]
		manifest, _ := registry.Resolve(node.Type)
		pair := classifications[id]

		controls := domain.NewControlSet()
		controls.AddAll(manifest.Controls.Requires)

		for _, min := range unconditionalThresholds {
			if pair.Max().Rank() >= min.min.Rank() {
				controls.Add(min.control)
			}
		}

		// Testable property 7 (spec.md §8): max(in,out) >= PHI under a pack
		// with defaults.logging.redact=true always injects LOG_REDACTION.
		if pack.Defaults.Logging.Redact && pair.Max().Rank() >= domain.PHI.Rank() {
			controls.Add(domain.ControlLogRedaction)
		}
		// ARTIFACT_ENCRYPTION: max(in,out) >= PII, the pack defaults to
		// encrypting artifacts at rest, and this node actually writes one.
		if pack.Defaults.Artifacts.EncryptAtRest && pair.Max().Rank() >= domain.PII.Rank() && manifest.Capabilities.Writes != domain.ModeNone {
			controls.Add(domain.ControlArtifactEncryption)
		}
		// DLP_SCAN: max(in,out) >= PII and this node has external egress.
		if pair.Max().Rank() >= domain.PII.Rank() && manifest.Capabilities.Egress == domain.ModeExternal {
			controls.Add(domain.ControlDLPScan)
		}

		for _, rule := range pack.Rules {
			if !conditionMatches(rule.When, node, manifest, pair) {
				continue
			}
			applyAction(rule, id, node.Type, manifest, controls, &result)
		}

		result.RequiresControls[id] = controls
	}

	return result
}

// conditionMatches reports whether every non-zero field of c holds for the
// given (node, manifest, classification) triple (spec.md §4.4).
func conditionMatches(c domain.Condition, node *domain.DSLNode, manifest domain.NodeManifest, pair domain.ClassificationPair) bool {
	if len(c.DataContains) > 0 {
		if !domain.InClassificationRange(pair.Max(), c.DataContains) {
			return false
		}
	}
	if c.NodeType != "" && c.NodeType != node.Type {
		return false
	}
	if c.NodeCategory != "" && !nodeCategoryMatches(node.Type, c.NodeCategory) {
		return false
	}
	if c.Capability != "" && !capabilityMatches(c.Capability, manifest) {
		return false
	}
	if c.Egress != nil && (manifest.Capabilities.Egress != domain.ModeNone) != *c.Egress {
		return false
	}
	if c.Writes != nil && (manifest.Capabilities.Writes != domain.ModeNone) != *c.Writes {
		return false
	}
	if c.Deletes != nil && manifest.Capabilities.Deletes != *c.Deletes {
		return false
	}
	if c.PrivilegedAccess != nil && manifest.Capabilities.PrivilegedAccess != *c.PrivilegedAccess {
		return false
	}
	if c.NetworkDomainMatches != nil {
		matched := false
		for _, d := range manifest.Capabilities.Network.AllowDomains {
			if c.NetworkDomainMatches.MatchString(d) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// nodeCategoryMatches reports whether a node's type belongs to category,
// taking the leading dotted segment of the type as its category (e.g.
// "ai.agent" belongs to category "ai").
func nodeCategoryMatches(nodeType, category string) bool {
	for i, r := range nodeType {
		if r == '.' {
			return nodeType[:i] == category
		}
	}
	return nodeType == category
}

// capabilityMatches evaluates the shorthand boolean/mode capability
// predicates a Condition.Capability name can reference.
func capabilityMatches(capability domain.Capability, manifest domain.NodeManifest) bool {
	switch capability {
	case domain.CapabilityEgress:
		return manifest.Capabilities.Egress != domain.ModeNone
	case domain.CapabilityWrites:
		return manifest.Capabilities.Writes != domain.ModeNone
	case domain.CapabilityDeletes:
		return manifest.Capabilities.Deletes
	case domain.CapabilityPrivilegedAccess:
		return manifest.Capabilities.PrivilegedAccess
	default:
		return false
	}
}

// applyAction records a matched rule's effect against result, honoring
// generic controls unconditionally and gating manifest-specific controls
// on the target manifest actually supporting them (spec.md §4.4, testable
// property 9).
func applyAction(rule domain.Rule, nodeID, nodeType string, manifest domain.NodeManifest, controls domain.ControlSet, result *domain.PolicyResult) {
	switch rule.Then.Kind {
	case domain.ActionBlock:
		result.Blocks = append(result.Blocks, domain.PolicyBlock{
			NodeID:   nodeID,
			RuleID:   rule.ID,
			Message:  blockMessage(rule),
			Severity: rule.Then.EffectiveSeverity(),
		})
	case domain.ActionWarn:
		result.Warnings = append(result.Warnings, domain.PolicyWarning{
			NodeID:   nodeID,
			RuleID:   rule.ID,
			Message:  blockMessage(rule),
			Severity: rule.Then.EffectiveSeverity(),
		})
	case domain.ActionRequireControls:
		supported := supportedControlSet(manifest)
		for _, c := range rule.Then.Controls {
			if domain.IsGenericControl(c) || supported.Has(c) {
				controls.Add(c)
				continue
			}
			result.Warnings = append(result.Warnings, domain.PolicyWarning{
				NodeID:   nodeID,
				RuleID:   rule.ID,
				Message:  fmt.Sprintf("Node %s does not support required control: %s", nodeType, c),
				Severity: domain.SeverityHigh,
			})
		}
	}
}

func supportedControlSet(manifest domain.NodeManifest) domain.ControlSet {
	s := domain.NewControlSet()
	s.AddAll(manifest.Controls.Supports)
	s.AddAll(manifest.Controls.Requires)
	return s
}

func blockMessage(rule domain.Rule) string {
	if rule.Then.Message != "" {
		return rule.Then.Message
	}
	if rule.Description != "" {
		return rule.Description
	}
	return fmt.Sprintf("rule %s matched", rule.ID)
}
