package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/relaybot/compiler/internal/domain"
)

// CompileExecutionPlan assembles the final ExecutionPlan from a built CFG,
// its classification and policy results (spec.md §4.6). Step ids are
// assigned in DSL discovery order (the order cfg.NodesByID's owning
// DSLRoot.Nodes listed them), never from any graph-traversal order, so the
// same input always produces the same step numbering regardless of map
// iteration. The id counter only advances for nodes that actually become a
// step — a container skipped by cfg.IsReal leaves no gap in the sequence.
func CompileExecutionPlan(dsl domain.DSLRoot, cfg *domain.CFG, registry *domain.ManifestRegistry, classifications ClassificationResult, policy domain.PolicyResult, run domain.RunMeta) (domain.ExecutionPlan, error) {
	stepIDs := make(map[string]string, len(dsl.Nodes))
	order := make([]string, 0, len(dsl.Nodes))
	counter := 0
	for _, n := range dsl.Nodes {
		if !cfg.IsReal(n.ID) {
			continue
		}
		id := fmt.Sprintf("step_%d", counter)
		counter++
		stepIDs[n.ID] = id
		order = append(order, n.ID)
	}

	steps := make([]domain.Step, 0, len(order))
	for _, nodeID := range order {
		node := cfg.NodesByID[nodeID]
		manifest, _ := registry.Resolve(node.Type)
		pair := classifications.ByNode[nodeID]
		controls := policy.RequiresControls[nodeID]

		jumps, err := resolveJumps(cfg, nodeID, stepIDs)
		if err != nil {
			return domain.ExecutionPlan{}, err
		}

		steps = append(steps, domain.Step{
			StepID:         stepIDs[nodeID],
			NodeID:         nodeID,
			Type:           node.Type,
			ResolvedConfig: domain.CopyObject(node.Config),
			Controls:       controls.Sorted(),
			Classification: pair,
			Runtime: domain.StepRuntime{
				Idempotent: manifest.Runtime.Idempotent,
				Retry:      manifest.Runtime.DefaultRetry,
				TimeoutMs:  manifest.Runtime.TimeoutMs,
			},
			Jumps: jumps,
		})
	}

	entryStepID, err := resolveEntryStep(cfg, stepIDs)
	if err != nil {
		return domain.ExecutionPlan{}, err
	}

	plan := domain.ExecutionPlan{
		PlanVersion: domain.PlanVersion,
		Run:         run,
		EntryStepID: entryStepID,
		Steps:       steps,
		Policy: domain.PolicyOutcome{
			Blocks:   policy.Blocks,
			Warnings: policy.Warnings,
		},
	}

	if err := ValidateExecutionPlan(plan); err != nil {
		return domain.ExecutionPlan{}, err
	}
	return plan, nil
}

// resolveJumps follows every outgoing edge of nodeID through any chain of
// pseudo-nodes until it lands on a real step id or domain.EndSentinel, with
// a cycle guard so a malformed CFG cannot loop this resolution forever. A
// step with no explicit "success" and/or "error" jump of its own still gets
// one routed to END, satisfying invariant 5 (spec.md §3, §4.6): every step
// has at least a success and an error jump.
func resolveJumps(cfg *domain.CFG, nodeID string, stepIDs map[string]string) ([]domain.Jump, error) {
	jumps := make([]domain.Jump, 0, len(cfg.Succ[nodeID]))
	seenPort := make(map[string]bool, len(cfg.Succ[nodeID]))
	for _, e := range cfg.Succ[nodeID] {
		if seenPort[e.FromPort] {
			continue
		}
		seenPort[e.FromPort] = true
		target, err := resolveTargetStep(cfg, e.To, stepIDs, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		jumps = append(jumps, domain.Jump{On: e.FromPort, ToStepID: target})
	}
	jumps = ensureJumpGuarantees(jumps)
	sort.Slice(jumps, func(i, j int) bool {
		if jumps[i].On != jumps[j].On {
			return jumps[i].On < jumps[j].On
		}
		return jumps[i].ToStepID < jumps[j].ToStepID
	})
	return jumps, nil
}

// ensureJumpGuarantees appends a default {on, END} jump for "success" and
// "error" when a step's own CFG edges didn't already resolve one.
func ensureJumpGuarantees(jumps []domain.Jump) []domain.Jump {
	has := make(map[string]bool, len(jumps))
	for _, j := range jumps {
		has[j.On] = true
	}
	if !has["success"] {
		jumps = append(jumps, domain.Jump{On: "success", ToStepID: domain.EndSentinel})
	}
	if !has["error"] {
		jumps = append(jumps, domain.Jump{On: "error", ToStepID: domain.EndSentinel})
	}
	return jumps
}

func resolveTargetStep(cfg *domain.CFG, id string, stepIDs map[string]string, seen map[string]bool) (string, error) {
	if id == domain.EndSentinel {
		return domain.EndSentinel, nil
	}
	if seen[id] {
		return "", domain.NewStructuralError(fmt.Sprintf("cycle detected resolving jump target through %q", id), nil)
	}
	seen[id] = true

	if cfg.IsReal(id) {
		stepID, ok := stepIDs[id]
		if !ok {
			return "", domain.NewStructuralError(fmt.Sprintf("node %q has no assigned step id", id), nil)
		}
		return stepID, nil
	}

	succ := cfg.Succ[id]
	if len(succ) == 0 {
		return domain.EndSentinel, nil
	}
	return resolveTargetStep(cfg, succ[0].To, stepIDs, seen)
}

// resolveEntryStep follows the root scope's entry pseudo-node to the first
// real step (spec.md §4.6).
func resolveEntryStep(cfg *domain.CFG, stepIDs map[string]string) (string, error) {
	return resolveTargetStep(cfg, domain.EntryNodeID(domain.RootScope), stepIDs, make(map[string]bool))
}

// ValidateExecutionPlan checks structural invariants that must hold of any
// plan before it is handed to a runner (spec.md §7): every jump target is
// either END or a step id present in Steps, and EntryStepID is itself a
// valid step id (or END, but only for a plan with no steps at all).
func ValidateExecutionPlan(plan domain.ExecutionPlan) error {
	known := make(map[string]bool, len(plan.Steps))
	for _, s := range plan.Steps {
		known[s.StepID] = true
	}
	if plan.EntryStepID == domain.EndSentinel && len(plan.Steps) > 0 {
		return domain.NewStructuralError("plan has steps but entryStepId is END", nil)
	}
	if plan.EntryStepID != domain.EndSentinel && !known[plan.EntryStepID] {
		return domain.NewStructuralError(fmt.Sprintf("entry step %q does not exist", plan.EntryStepID), nil)
	}
	for _, s := range plan.Steps {
		for _, j := range s.Jumps {
			if j.ToStepID != domain.EndSentinel && !known[j.ToStepID] {
				return domain.NewStructuralError(fmt.Sprintf("step %q has a dangling jump to %q", s.StepID, j.ToStepID), nil)
			}
		}
	}
	return nil
}

// hashableProjection is the subset of an ExecutionPlan the hash is computed
// over: everything except Run.RunID and Run.StartedAt, which vary run to
// run without the plan's semantics changing (spec.md §4.6, §9).
type hashableProjection struct {
	PlanVersion string              `json:"planVersion"`
	TenantID    string              `json:"tenantId"`
	BotID       string              `json:"botId"`
	BotVersion  string              `json:"botVersion"`
	EntryStepID string              `json:"entryStepId"`
	Steps       []domain.Step       `json:"steps"`
	Policy      domain.PolicyOutcome `json:"policy"`
}

// HashExecutionPlan computes a deterministic SHA-256 digest over a
// canonicalized, run-identity-independent projection of plan: two compiles
// of the same bot/tenant/policy inputs hash identically regardless of
// runId or startedAt (spec.md §4.6, testable property 4).
func HashExecutionPlan(plan domain.ExecutionPlan) (string, error) {
	projection := hashableProjection{
		PlanVersion: plan.PlanVersion,
		TenantID:    plan.Run.TenantID,
		BotID:       plan.Run.BotID,
		BotVersion:  plan.Run.BotVersion,
		EntryStepID: plan.EntryStepID,
		Steps:       plan.Steps,
		Policy:      plan.Policy,
	}
	b, err := json.Marshal(projection)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// SerializeExecutionPlan renders plan as its canonical wire JSON form
// (spec.md §6).
func SerializeExecutionPlan(plan domain.ExecutionPlan) ([]byte, error) {
	return json.Marshal(plan)
}

// DeserializeExecutionPlan is the inverse of SerializeExecutionPlan.
func DeserializeExecutionPlan(data []byte) (domain.ExecutionPlan, error) {
	var plan domain.ExecutionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return domain.ExecutionPlan{}, err
	}
	return plan, nil
}
