package compiler

import (
	"fmt"

	"github.com/relaybot/compiler/internal/domain"
)

// ClassificationResult is the output of PropagateClassification: a pair of
// classifications per real CFG node, plus any consumes-validation warnings
// collected along the way (spec.md §4.3).
type ClassificationResult struct {
	ByNode   map[string]domain.ClassificationPair
	Warnings []string
}

// PropagateClassification runs the monotonic worklist fixed-point over cfg,
// deriving each real node's {in,out} classification pair from its
// manifest's DataEffect and its predecessors' outputs (spec.md §4.3).
//
// injectedControls, when non-nil, lets a second propagation pass (after
// policy evaluation has decided which TRANSFORM-capable controls apply to
// which node) lower a node's effective output below what its manifest alone
// would produce — REDACT/TOKENIZE bring PHI/PII down to UNCLASSIFIED.
func PropagateClassification(cfg *domain.CFG, registry *domain.ManifestRegistry, injectedControls map[string]domain.ControlSet) ClassificationResult {
	result := ClassificationResult{ByNode: make(map[string]domain.ClassificationPair)}

	ids := make([]string, 0, len(cfg.NodesByID))
	for id := range cfg.NodesByID {
		ids = append(ids, id)
		result.ByNode[id] = domain.ClassificationPair{In: domain.Unclassified, Out: domain.Unclassified}
	}

	queue := newNodeQueue(ids)
	iterCap := len(ids) * 30
	iterations := 0

	for !queue.empty() {
		iterations++
		if iterations > iterCap && iterCap > 0 {
			break
		}
		id := queue.pop()
		node := cfg.NodesByID[id]
		if node == nil {
			continue
		}
		manifest, _ := registry.Resolve(node.Type)

		in := inClassification(cfg, id, result.ByNode)
		out := outClassification(manifest.Data, in, node.ID, injectedControls)

		prev := result.ByNode[id]
		if prev.In == in && prev.Out == out {
			continue
		}
		result.ByNode[id] = domain.ClassificationPair{In: in, Out: out}

		if len(manifest.Data.Consumes) > 0 && !consumesAllows(manifest.Data.Consumes, in) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("node %q receives classification %s which is outside its declared consumes set", id, in))
		}

		// Enqueue every real node reachable through pseudo-nodes and
		// containers too, since their IN is read through those chains.
		pending := []string{id}
		visited := map[string]bool{id: true}
		for len(pending) > 0 {
			cur := pending[0]
			pending = pending[1:]
			for _, e := range cfg.Succ[cur] {
				if visited[e.To] {
					continue
				}
				visited[e.To] = true
				if cfg.IsReal(e.To) {
					queue.push(e.To)
				} else {
					pending = append(pending, e.To)
				}
			}
		}
	}

	return result
}

// consumesAllows reports whether in is a member of consumes — an exact set
// membership test, distinct from domain.InClassificationRange's threshold
// semantics (which answers a different question: "is target at or above
// one of these levels", used by the policy evaluator's dataContains
// predicate instead).
func consumesAllows(consumes []domain.Classification, in domain.Classification) bool {
	for _, c := range consumes {
		if c == in {
			return true
		}
	}
	return false
}

// inClassification joins the Out of every real predecessor reaching id,
// following pseudo-node and container chains transparently: a predecessor
// that is not a real node contributes the join of the real ancestors found
// behind it (see realAncestorOutput), or Unclassified if there are none.
func inClassification(cfg *domain.CFG, id string, byNode map[string]domain.ClassificationPair) domain.Classification {
	out := domain.Unclassified
	for _, e := range cfg.Pred[id] {
		out = domain.JoinClassification(out, realAncestorOutput(cfg, e.From, byNode, make(map[string]bool)))
	}
	return out
}

// realAncestorOutput walks backward through pseudo-nodes until it finds a
// real node's Out classification (or runs out of predecessors, yielding
// Unclassified — the scope's entry point carries no data of its own).
func realAncestorOutput(cfg *domain.CFG, id string, byNode map[string]domain.ClassificationPair, seen map[string]bool) domain.Classification {
	if seen[id] {
		return domain.Unclassified
	}
	seen[id] = true
	if cfg.IsReal(id) {
		return byNode[id].Out
	}
	out := domain.Unclassified
	for _, e := range cfg.Pred[id] {
		out = domain.JoinClassification(out, realAncestorOutput(cfg, e.From, byNode, seen))
	}
	return out
}

// outClassification derives a node's Out classification from its manifest
// DataEffect and its computed In (spec.md §4.3, §3 "Propagation modes").
func outClassification(effect domain.DataEffect, in domain.Classification, nodeID string, injectedControls map[string]domain.ControlSet) domain.Classification {
	if effect.OutputClassificationOverride != nil {
		return *effect.OutputClassificationOverride
	}

	var base domain.Classification
	switch effect.Propagation {
	case domain.PropagationNone:
		base = domain.JoinAllClassifications(effect.Produces)
	case domain.PropagationPassThrough:
		base = domain.JoinClassification(in, domain.JoinAllClassifications(effect.Produces))
	case domain.PropagationDerive:
		base = domain.JoinClassification(in, domain.JoinAllClassifications(effect.Produces))
	case domain.PropagationTransform:
		base = domain.JoinClassification(in, domain.JoinAllClassifications(effect.Produces))
	default:
		base = in
	}

	// Testable property 6 (spec.md §8): a TRANSFORM leaf whose IN is PII or
	// PHI and whose injected controls include REDACT or TOKENIZE declassifies
	// fully to UNCLASSIFIED.
	if effect.Propagation == domain.PropagationTransform && (in == domain.PII || in == domain.PHI) {
		if controls, ok := injectedControls[nodeID]; ok {
			if controls.Has(domain.ControlRedact) || controls.Has(domain.ControlTokenize) {
				base = domain.Unclassified
			}
		}
	}

	return base
}

// nodeQueue is a FIFO worklist with membership tracking so pushing a node
// already queued is a no-op, matching a standard worklist fixed-point
// iteration scheme.
type nodeQueue struct {
	items   []string
	queued  map[string]bool
}

func newNodeQueue(seed []string) *nodeQueue {
	q := &nodeQueue{queued: make(map[string]bool, len(seed))}
	for _, id := range seed {
		q.push(id)
	}
	return q
}

func (q *nodeQueue) push(id string) {
	if q.queued[id] {
		return
	}
	q.queued[id] = true
	q.items = append(q.items, id)
}

func (q *nodeQueue) pop() string {
	id := q.items[0]
	q.items = q.items[1:]
	q.queued[id] = false
	return id
}

func (q *nodeQueue) empty() bool {
	return len(q.items) == 0
}
