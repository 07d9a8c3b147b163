package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybot/compiler/internal/domain"
)

func leaf(id string) domain.DSLNode {
	return domain.DSLNode{ID: id, Type: "noop", Config: domain.Object{}}
}

func TestBuildCFG_LinearSequence(t *testing.T) {
	dsl := domain.DSLRoot{
		Nodes: []domain.DSLNode{leaf("a"), leaf("b"), leaf("c")},
	}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	require.True(t, cfg.IsReal("a"))
	require.True(t, cfg.IsReal("b"))
	require.True(t, cfg.IsReal("c"))

	// a -> b -> c -> END
	assertEdge(t, cfg, "a", "success", "b")
	assertEdge(t, cfg, "b", "success", "c")
	assertEdge(t, cfg, "c", "success", domain.EndSentinel)
}

func TestBuildCFG_NoLeakedPseudoNodeIDs(t *testing.T) {
	dsl := domain.DSLRoot{
		Nodes: []domain.DSLNode{
			{
				ID:   "branch",
				Type: domain.ContainerIf,
				Ports: map[string]domain.ScopePort{
					domain.PortThen: {NodeIDs: []string{"then-leaf"}},
				},
				Children: []string{"then-leaf"},
			},
			{ID: "then-leaf", Type: "noop", Config: domain.Object{}},
			leaf("after"),
		},
	}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	// "branch" is a container: it gets a scope, never a step (spec.md
	// invariant 3), so it is neither a pseudo-node nor a real node.
	assert.False(t, cfg.IsReal("branch"))
	assert.True(t, cfg.IsReal("then-leaf"))
	assert.True(t, cfg.IsReal("after"))

	// the "then" leaf eventually reaches "after"
	assertEventuallyReaches(t, cfg, "then-leaf", "after")
}

func TestBuildCFG_TryCatchRedirectsErrorEdge(t *testing.T) {
	dsl := domain.DSLRoot{
		Nodes: []domain.DSLNode{
			{
				ID:   "guard",
				Type: domain.ContainerTryCatch,
				Ports: map[string]domain.ScopePort{
					domain.PortTry:   {NodeIDs: []string{"risky"}},
					domain.PortCatch: {NodeIDs: []string{"handler"}},
				},
			},
			{ID: "risky", Type: "noop", Config: domain.Object{}, Outputs: domain.NodeOutputs{Error: domain.EndSentinel}},
			{ID: "handler", Type: "noop", Config: domain.Object{}},
			leaf("after"),
		},
	}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	assertEdge(t, cfg, "risky", "error", domain.EntryNodeID("guard:catch"))
	assertEventuallyReaches(t, cfg, "risky", "handler")
	assertEventuallyReaches(t, cfg, "handler", "after")
}

func TestBuildCFG_RootEntryFansOutToDeclaredTriggers(t *testing.T) {
	dsl := domain.DSLRoot{
		Triggers: []string{"trig-2", "trig-1"},
		Nodes:    []domain.DSLNode{leaf("trig-1"), leaf("trig-2")},
	}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	entry := domain.EntryNodeID(domain.RootScope)
	assertEdge(t, cfg, entry, domain.PortThen, "trig-2")
	assertEdge(t, cfg, entry, domain.PortThen, "trig-1")
}

func TestBuildCFG_RootEntryFallsBackToTriggerTypedNodes(t *testing.T) {
	dsl := domain.DSLRoot{
		Nodes: []domain.DSLNode{
			{ID: "t1", Type: "trigger.webhook", Config: domain.Object{}},
			{ID: "t2", Type: "trigger.schedule", Config: domain.Object{}},
			leaf("body"),
		},
	}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	entry := domain.EntryNodeID(domain.RootScope)
	assertEdge(t, cfg, entry, domain.PortThen, "t1")
	assertEdge(t, cfg, entry, domain.PortThen, "t2")
	for _, e := range cfg.Succ[entry] {
		assert.NotEqual(t, "body", e.To)
	}
}

func TestBuildCFG_RootEntryFallsBackToFirstNodeWithNoTriggers(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{leaf("a"), leaf("b")}}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	entry := domain.EntryNodeID(domain.RootScope)
	assertEdge(t, cfg, entry, domain.PortThen, "a")
	require.Len(t, cfg.Succ[entry], 1)
}

func TestBuildCFG_LoopBackEdge(t *testing.T) {
	dsl := domain.DSLRoot{
		Nodes: []domain.DSLNode{
			{
				ID:   "loop",
				Type: domain.ContainerLoop,
				Ports: map[string]domain.ScopePort{
					domain.PortBody: {NodeIDs: []string{"iter"}},
				},
			},
			{ID: "iter", Type: "noop", Config: domain.Object{}},
			leaf("after"),
		},
	}

	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	assertEdge(t, cfg, "loop", "success", domain.DoneNodeID("loop"))
	assertEdge(t, cfg, domain.DoneNodeID("loop"), "then", "after")
	assertEdge(t, cfg, "iter", "success", domain.EntryNodeID("loop"))
	assertEdge(t, cfg, domain.EntryNodeID("loop"), "then", "loop")
}

func assertEdge(t *testing.T, cfg *domain.CFG, from, port, to string) {
	t.Helper()
	for _, e := range cfg.Succ[from] {
		if e.FromPort == port && e.To == to {
			return
		}
	}
	t.Fatalf("no edge %s --%s--> %s (have: %+v)", from, port, to, cfg.Succ[from])
}

func assertEventuallyReaches(t *testing.T, cfg *domain.CFG, from, target string) {
	t.Helper()
	seen := map[string]bool{}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == target {
			return
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, e := range cfg.Succ[id] {
			queue = append(queue, e.To)
		}
	}
	t.Fatalf("%s never reaches %s", from, target)
}
