package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relaybot/compiler/internal/domain"
)

// BuildCFG lowers a nested DSLRoot into a flat CFG: every container region
// gets its own scope id (the container node's id, joined with the port name
// for each port region), with a synthetic Entry pseudo-node per scope; loops
// also get Done and NextIter pseudo-nodes (spec.md §4.2, §9). No End
// pseudo-nodes are created: a region's fall-through edges point straight
// at the target the caller passed in.
//
// The root workflow is itself treated as a scope named domain.RootScope.
func BuildCFG(dsl domain.DSLRoot) (*domain.CFG, error) {
	cfg := domain.NewCFG()
	byID := dsl.NodeByID()
	b := &builder{cfg: cfg, byID: byID}

	rootIDs := topLevelNodeIDs(dsl)
	if err := b.wireRootScope(dsl, rootIDs); err != nil {
		return nil, err
	}

	cfg.Finalize()
	return cfg, nil
}

// wireRootScope threads the workflow root the same way wireScope threads any
// other scope's node list, except its entry pseudo-node fans out to every
// declared trigger instead of unconditionally to the first node (spec.md
// §4.2 step 4): `dsl.triggers` if present, else every node whose type starts
// with "trigger.", else the first node.
func (b *builder) wireRootScope(dsl domain.DSLRoot, ids []string) error {
	entry := domain.EntryNodeID(domain.RootScope)
	b.cfg.AddNode(entry, domain.RootScope)

	if len(ids) == 0 {
		b.cfg.AddEdge(entry, domain.PortThen, domain.EndSentinel)
		return nil
	}

	for _, target := range b.rootEntryTargets(dsl, ids) {
		b.cfg.AddEdge(entry, domain.PortThen, target)
	}

	for i, id := range ids {
		node, ok := b.byID[id]
		if !ok {
			return fmt.Errorf("cfg: node %q referenced but not declared", id)
		}
		next := domain.EndSentinel
		if i+1 < len(ids) {
			next = ids[i+1]
		}
		if err := b.wireNode(domain.RootScope, node, next); err != nil {
			return err
		}
	}
	return nil
}

// rootEntryTargets resolves which root-level node ids the workflow entry
// point fans out to (spec.md §4.2 step 4).
func (b *builder) rootEntryTargets(dsl domain.DSLRoot, ids []string) []string {
	if len(dsl.Triggers) > 0 {
		return dsl.Triggers
	}
	var triggers []string
	for _, id := range ids {
		if node, ok := b.byID[id]; ok && strings.HasPrefix(node.Type, "trigger.") {
			triggers = append(triggers, id)
		}
	}
	if len(triggers) > 0 {
		return triggers
	}
	return ids[:1]
}

// topLevelNodeIDs returns the ids of nodes that belong directly to the
// workflow root, i.e. are never referenced as a child of another node.
func topLevelNodeIDs(dsl domain.DSLRoot) []string {
	isChild := make(map[string]bool, len(dsl.Nodes))
	for _, n := range dsl.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
		for _, port := range n.Ports {
			for _, c := range port.NodeIDs {
				isChild[c] = true
			}
		}
	}
	var out []string
	for _, n := range dsl.Nodes {
		if !isChild[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

type builder struct {
	cfg  *domain.CFG
	byID map[string]*domain.DSLNode
}

// wireScope threads the sequential node list ids through scope, wiring each
// node's "success" port to the next node in the list (or to scopeExit, the
// caller-supplied target for falling off the end of this region).
func (b *builder) wireScope(scope string, ids []string, scopeExit string) error {
	entry := domain.EntryNodeID(scope)
	b.cfg.AddNode(entry, scope)

	if len(ids) == 0 {
		b.cfg.AddEdge(entry, domain.PortThen, scopeExit)
		return nil
	}

	b.cfg.AddEdge(entry, domain.PortThen, ids[0])

	for i, id := range ids {
		node, ok := b.byID[id]
		if !ok {
			return fmt.Errorf("cfg: node %q referenced but not declared", id)
		}
		next := scopeExit
		if i+1 < len(ids) {
			next = ids[i+1]
		}
		if err := b.wireNode(scope, node, next); err != nil {
			return err
		}
	}
	return nil
}

// wireNode emits a node's own edges (and, for containers, recurses into its
// child scopes) and connects its fall-through exits to next. Every non-leaf
// DSL node becomes a scope, not a step (spec.md invariant 3): containers are
// only registered via AddNode, so domain.CFG.IsReal reports false for them
// and the Plan Compiler never allocates a Step for one. Break/continue carry
// no region of their own, but they are still real steps in the compiled
// plan — their routing is rewritten in place by the enclosing loop.
func (b *builder) wireNode(scope string, node *domain.DSLNode, next string) error {
	b.cfg.AddNode(node.ID, scope)

	switch node.Type {
	case domain.ContainerIf:
		return b.wireIf(scope, node, next)
	case domain.ContainerTryCatch:
		return b.wireTryCatch(scope, node, next)
	case domain.ContainerSwitch:
		return b.wireSwitch(scope, node, next)
	case domain.ContainerParallel:
		return b.wireParallel(scope, node, next)
	case domain.ContainerLoop, domain.ContainerWhile:
		return b.wireLoop(scope, node, next)
	case domain.ContainerBreak, domain.ContainerContinue:
		// Resolved by the enclosing loop's break/continue rewrite pass; the
		// node itself emits no edge of its own here.
		b.cfg.AddRealNode(node, scope)
		return nil
	default:
		if len(node.Ports) > 0 || len(node.Children) > 0 {
			return b.wireGenericContainer(scope, node, next)
		}
		return b.wireLeaf(scope, node, next)
	}
}

// wireLeaf wires a plain node's success/error outputs. An explicit jump
// target of domain.EndSentinel in the DSL's own Outputs overrides next.
func (b *builder) wireLeaf(scope string, node *domain.DSLNode, next string) error {
	b.cfg.AddRealNode(node, scope)
	success := next
	if node.Outputs.Success != "" {
		success = resolveTarget(node.Outputs.Success, next)
	}
	b.cfg.AddEdge(node.ID, "success", success)

	if node.Outputs.Error != "" {
		b.cfg.AddEdge(node.ID, "error", resolveTarget(node.Outputs.Error, next))
	}
	return nil
}

// resolveTarget maps a DSL-declared output target to a CFG node id: the
// literal domain.EndSentinel means "leave the enclosing scope", which at
// build time is represented by whatever `next` the caller already resolved
// for falling off the end of the region.
func resolveTarget(target, next string) string {
	if target == domain.EndSentinel {
		return next
	}
	return target
}

// wireIf wires a control.if container: the "then" and "else" ports each
// lead into their own region, both falling through to next.
func (b *builder) wireIf(scope string, node *domain.DSLNode, next string) error {
	for _, port := range []string{domain.PortThen, domain.PortElse} {
		region, ok := node.Ports[port]
		if !ok {
			continue
		}
		cs := childScope(node.ID, port)
		if err := b.wireScope(cs, region.NodeIDs, next); err != nil {
			return err
		}
		b.cfg.AddEdge(node.ID, port, domain.EntryNodeID(cs))
	}
	return nil
}

// wireSwitch wires a control.switch container: one region per case_* port
// plus an optional default, each falling through to next.
func (b *builder) wireSwitch(scope string, node *domain.DSLNode, next string) error {
	for _, port := range sortedPortNames(node.Ports) {
		region := node.Ports[port]
		cs := childScope(node.ID, port)
		if err := b.wireScope(cs, region.NodeIDs, next); err != nil {
			return err
		}
		b.cfg.AddEdge(node.ID, port, domain.EntryNodeID(cs))
	}
	return nil
}

// wireParallel wires a control.parallel container: every branch_* port runs
// its own region; the container as a whole falls through to next only once
// every branch has reached its own end (modeled here, for a static control
// graph, as every branch still independently targeting next — the runtime
// owns the actual join/fan-in barrier, a Non-goal of this compiler).
func (b *builder) wireParallel(scope string, node *domain.DSLNode, next string) error {
	for _, port := range sortedPortNames(node.Ports) {
		region := node.Ports[port]
		cs := childScope(node.ID, port)
		if err := b.wireScope(cs, region.NodeIDs, next); err != nil {
			return err
		}
		b.cfg.AddEdge(node.ID, port, domain.EntryNodeID(cs))
	}
	return nil
}

// sortedPortNames returns ports' keys in lexicographic order so that
// case_*/branch_* enumeration, and any "first port" resolution downstream,
// is independent of Go's randomized map iteration (spec.md §4.2, §5).
func sortedPortNames(ports map[string]domain.ScopePort) []string {
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// wireTryCatch wires a control.try_catch container. Every error edge
// produced inside the try region that would otherwise leave the region is
// redirected to the catch region's entry instead of next; the catch
// region's own fall-through, and the try region's success fall-through,
// both lead to next.
func (b *builder) wireTryCatch(scope string, node *domain.DSLNode, next string) error {
	tryRegion, hasTry := node.Ports[domain.PortTry]
	catchRegion, hasCatch := node.Ports[domain.PortCatch]

	catchScope := childScope(node.ID, domain.PortCatch)
	if hasCatch {
		if err := b.wireScope(catchScope, catchRegion.NodeIDs, next); err != nil {
			return err
		}
	} else {
		b.cfg.AddNode(domain.EntryNodeID(catchScope), catchScope)
		b.cfg.AddEdge(domain.EntryNodeID(catchScope), domain.PortThen, next)
	}

	if hasTry {
		tryScope := childScope(node.ID, domain.PortTry)
		if err := b.wireScope(tryScope, tryRegion.NodeIDs, next); err != nil {
			return err
		}
		// Redirect every error edge inside the try region that targets next
		// (i.e. was about to leave the region on failure) to the catch entry.
		for _, id := range tryRegion.NodeIDs {
			b.cfg.RewriteEdge(id, "error", next, domain.EntryNodeID(catchScope))
		}
		b.cfg.AddEdge(node.ID, domain.PortTry, domain.EntryNodeID(tryScope))
	}
	b.cfg.AddEdge(node.ID, domain.PortCatch, domain.EntryNodeID(catchScope))
	return nil
}

// wireLoop wires a control.loop/control.while container. The body region's
// fall-through target is the loop's own NextIter pseudo-node rather than
// next directly, and NextIter is then rewritten back to the loop's entry
// (the back-edge), while the loop's own "done" exit (falling off the
// condition, or an explicit break) leads to next.
func (b *builder) wireLoop(scope string, node *domain.DSLNode, next string) error {
	loopScope := node.ID
	nextIter := domain.NextIterNodeID(loopScope)
	doneID := domain.DoneNodeID(loopScope)

	b.cfg.AddNode(nextIter, loopScope)
	b.cfg.AddNode(doneID, loopScope)
	b.cfg.AddEdge(doneID, domain.PortThen, next)

	body, hasBody := node.Ports[domain.PortBody]
	if hasBody {
		bodyScope := childScope(node.ID, domain.PortBody)
		if err := b.wireScope(bodyScope, body.NodeIDs, nextIter); err != nil {
			return err
		}
		b.cfg.AddEdge(node.ID, domain.PortBody, domain.EntryNodeID(bodyScope))

		// break/continue nodes emit no edge of their own in wireNode; wire
		// them here directly to the loop's done/entry pseudo-nodes rather
		// than letting them fall through to nextIter like an ordinary leaf.
		for _, id := range body.NodeIDs {
			bodyNode := b.byID[id]
			if bodyNode == nil {
				continue
			}
			switch bodyNode.Type {
			case domain.ContainerBreak:
				b.cfg.AddEdge(id, "success", doneID)
			case domain.ContainerContinue:
				b.cfg.AddEdge(id, "success", domain.EntryNodeID(loopScope))
			}
		}
	} else {
		b.cfg.AddEdge(node.ID, domain.PortBody, nextIter)
	}

	// node.ID itself is the per-iteration condition check: "body" continues
	// into the loop, falling through on "success" means the condition came
	// back false and the loop is done.
	b.cfg.AddEdge(node.ID, "success", doneID)

	// The back-edge: finishing an iteration re-enters the loop's own entry
	// (condition re-check), rather than the body's entry directly.
	b.cfg.AddNode(domain.EntryNodeID(loopScope), loopScope)
	b.cfg.RewriteTargets(nextIter, domain.EntryNodeID(loopScope))
	b.cfg.AddEdge(domain.EntryNodeID(loopScope), domain.PortThen, node.ID)

	return nil
}

// wireGenericContainer wires an unrecognized container type conservatively:
// a single "body" (or first available) port region is threaded in sequence,
// falling through to next — matching how an unknown structural node with
// ports/children is still expected to behave per spec.md §3 (generic
// containers have at least one scope but no further structural meaning).
func (b *builder) wireGenericContainer(scope string, node *domain.DSLNode, next string) error {
	if len(node.Ports) > 0 {
		for _, port := range sortedPortNames(node.Ports) {
			region := node.Ports[port]
			cs := childScope(node.ID, port)
			if err := b.wireScope(cs, region.NodeIDs, next); err != nil {
				return err
			}
			b.cfg.AddEdge(node.ID, port, domain.EntryNodeID(cs))
		}
		return nil
	}
	cs := childScope(node.ID, domain.PortBody)
	if err := b.wireScope(cs, node.Children, next); err != nil {
		return err
	}
	b.cfg.AddEdge(node.ID, domain.PortBody, domain.EntryNodeID(cs))
	return nil
}

func childScope(nodeID, port string) string {
	return nodeID + ":" + port
}
