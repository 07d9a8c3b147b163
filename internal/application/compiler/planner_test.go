package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybot/compiler/internal/domain"
)

func emptyPolicy() domain.PolicyResult {
	return domain.PolicyResult{RequiresControls: map[string]domain.ControlSet{}}
}

func TestCompileExecutionPlan_LinearSequenceStepOrderAndJumps(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{leaf("a"), leaf("b")}}
	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	classifications := ClassificationResult{ByNode: map[string]domain.ClassificationPair{
		"a": {}, "b": {},
	}}
	registry := domain.NewManifestRegistry(nil)

	plan, err := CompileExecutionPlan(dsl, cfg, registry, classifications, emptyPolicy(), domain.RunMeta{TenantID: "t1", BotID: "bot1"})
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "step_0", plan.Steps[0].StepID)
	assert.Equal(t, "a", plan.Steps[0].NodeID)
	assert.Equal(t, "step_1", plan.Steps[1].StepID)
	assert.Equal(t, "b", plan.Steps[1].NodeID)

	require.Len(t, plan.Steps[0].Jumps, 2)
	successJump := jumpOn(t, plan.Steps[0].Jumps, "success")
	assert.Equal(t, "step_1", successJump.ToStepID)
	errorJump := jumpOn(t, plan.Steps[0].Jumps, "error")
	assert.Equal(t, domain.EndSentinel, errorJump.ToStepID)

	require.Len(t, plan.Steps[1].Jumps, 2)
	assert.Equal(t, domain.EndSentinel, jumpOn(t, plan.Steps[1].Jumps, "success").ToStepID)

	assert.Equal(t, "step_0", plan.EntryStepID)
	require.NoError(t, ValidateExecutionPlan(plan))
}

func jumpOn(t *testing.T, jumps []domain.Jump, on string) domain.Jump {
	t.Helper()
	for _, j := range jumps {
		if j.On == on {
			return j
		}
	}
	t.Fatalf("no jump on %q among %v", on, jumps)
	return domain.Jump{}
}

// An `if` container is a scope, never a step (spec.md invariant 3): only its
// branch leaves appear in the compiled plan, and the root entry resolves
// straight through the container to its first port's entry (then, here).
func TestCompileExecutionPlan_IfContainerHasNoStepAndEntryFollowsFirstBranch(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{
			ID:   "branch",
			Type: domain.ContainerIf,
			Ports: map[string]domain.ScopePort{
				domain.PortThen: {NodeIDs: []string{"then-leaf"}},
				domain.PortElse: {NodeIDs: []string{"else-leaf"}},
			},
		},
		{ID: "then-leaf", Type: "noop", Config: domain.Object{}},
		{ID: "else-leaf", Type: "noop", Config: domain.Object{}},
	}}
	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	classifications := ClassificationResult{ByNode: map[string]domain.ClassificationPair{}}
	registry := domain.NewManifestRegistry(nil)

	plan, err := CompileExecutionPlan(dsl, cfg, registry, classifications, emptyPolicy(), domain.RunMeta{})
	require.NoError(t, err)
	require.NoError(t, ValidateExecutionPlan(plan))

	require.Len(t, plan.Steps, 2)
	byNodeID := map[string]string{}
	for _, s := range plan.Steps {
		assert.NotEqual(t, "branch", s.NodeID, "container node must not become a step")
		byNodeID[s.NodeID] = s.StepID
	}

	assert.Equal(t, byNodeID["then-leaf"], plan.EntryStepID)
}

func TestCompileExecutionPlan_DanglingJumpFailsValidation(t *testing.T) {
	plan := domain.ExecutionPlan{
		EntryStepID: "step_0",
		Steps: []domain.Step{
			{StepID: "step_0", Jumps: []domain.Jump{{On: "success", ToStepID: "step_404"}}},
		},
	}
	err := ValidateExecutionPlan(plan)
	require.Error(t, err)
}

func TestCompileExecutionPlan_UnknownEntryStepFailsValidation(t *testing.T) {
	plan := domain.ExecutionPlan{
		EntryStepID: "step-missing",
		Steps:       []domain.Step{{StepID: "step_0"}},
	}
	err := ValidateExecutionPlan(plan)
	require.Error(t, err)
}

func buildSamplePlan(t *testing.T) domain.ExecutionPlan {
	t.Helper()
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{leaf("a"), leaf("b")}}
	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	classifications := ClassificationResult{ByNode: map[string]domain.ClassificationPair{
		"a": {In: domain.PII, Out: domain.PII}, "b": {},
	}}
	registry := domain.NewManifestRegistry(nil)

	plan, err := CompileExecutionPlan(dsl, cfg, registry, classifications, emptyPolicy(),
		domain.RunMeta{RunID: "run-1", TenantID: "t1", BotID: "bot1", BotVersion: "v1"})
	require.NoError(t, err)
	return plan
}

func TestHashExecutionPlan_DeterministicAcrossRunIdentity(t *testing.T) {
	planA := buildSamplePlan(t)
	planB := buildSamplePlan(t)
	planB.Run.RunID = "run-2"
	planB.Run.StartedAt = planA.Run.StartedAt.Add(1)

	hashA, err := HashExecutionPlan(planA)
	require.NoError(t, err)
	hashB, err := HashExecutionPlan(planB)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB, "hash must not depend on run id or start time")
}

func TestHashExecutionPlan_ChangesWhenStepsDiffer(t *testing.T) {
	planA := buildSamplePlan(t)
	planB := buildSamplePlan(t)
	planB.Steps[0].Controls = append(planB.Steps[0].Controls, domain.ControlAuditLog)

	hashA, err := HashExecutionPlan(planA)
	require.NoError(t, err)
	hashB, err := HashExecutionPlan(planB)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestSerializeDeserializeExecutionPlan_RoundTrips(t *testing.T) {
	plan := buildSamplePlan(t)

	data, err := SerializeExecutionPlan(plan)
	require.NoError(t, err)

	roundTripped, err := DeserializeExecutionPlan(data)
	require.NoError(t, err)

	if diff := cmp.Diff(plan, roundTripped); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}
