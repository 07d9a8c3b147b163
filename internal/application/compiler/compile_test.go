package compiler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybot/compiler/internal/domain"
)

func TestCompile_CleanBotSucceeds(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{leaf("a"), leaf("b")}}

	result, err := Compile(dsl, CompileOptions{
		Run:    domain.RunMeta{TenantID: "t1", BotID: "bot1"},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.True(t, result.Success())
	require.NotNil(t, result.Plan)
	assert.NotEmpty(t, result.PlanHash)
}

func TestCompile_AIConfigErrorAbortsBeforeCFG(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "agent-1", Type: "ai.agent", Config: domain.Object{}},
	}}

	result, err := Compile(dsl, CompileOptions{Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.Nil(t, result.Plan)
	assert.False(t, result.Success())
}

func TestCompile_PolicyBlockYieldsNoPlanButNoError(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "egress-1", Type: "http.send"},
	}}

	registry := domain.NewManifestRegistry(map[string]domain.NodeManifest{
		"http.send": {Capabilities: domain.Capabilities{Egress: domain.ModeExternal}},
	})
	pack := domain.PolicyPack{Rules: []domain.Rule{
		{
			ID:   "block-all-egress",
			When: domain.Condition{NodeType: "http.send"},
			Then: domain.Action{Kind: domain.ActionBlock, Message: "egress is forbidden for this tenant"},
		},
	}}

	result, err := Compile(dsl, CompileOptions{
		Registry: registry,
		Policy:   pack,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Nil(t, result.Plan)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "[BLOCKED]")
}

func TestCompile_SecondPassLowersTransformedPII(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "source", Type: "source"},
		{ID: "redactor", Type: "redactor"},
	}}

	registry := domain.NewManifestRegistry(map[string]domain.NodeManifest{
		"source": {Data: domain.DataEffect{Produces: []domain.Classification{domain.PII}, Propagation: domain.PropagationNone}},
		"redactor": {
			Data:     domain.DataEffect{Consumes: []domain.Classification{domain.PII}, Propagation: domain.PropagationTransform},
			Controls: domain.ControlsProfile{Supports: []domain.ControlType{domain.ControlRedact}},
		},
	})
	pack := domain.PolicyPack{Rules: []domain.Rule{
		{
			ID:   "redact-pii",
			When: domain.Condition{NodeType: "redactor"},
			Then: domain.Action{Kind: domain.ActionRequireControls, Controls: []domain.ControlType{domain.ControlRedact}},
		},
	}}

	result, err := Compile(dsl, CompileOptions{
		Registry: registry,
		Policy:   pack,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	require.True(t, result.Success())
	require.NotNil(t, result.Plan)

	var redactorStep *domain.Step
	for i := range result.Plan.Steps {
		if result.Plan.Steps[i].NodeID == "redactor" {
			redactorStep = &result.Plan.Steps[i]
		}
	}
	require.NotNil(t, redactorStep)
	assert.Equal(t, domain.Unclassified, redactorStep.Classification.Out)
}

func TestCompile_FailOnWarningsBlocksPlanButNotBlocked(t *testing.T) {
	model := domain.NewObject([]string{"provider"}, map[string]domain.Value{
		"provider": domain.String("openai"),
	})
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "agent-1", Type: "ai.agent", Config: domain.Object{"model": model}},
	}}

	result, err := Compile(dsl, CompileOptions{
		Logger:         zerolog.Nop(),
		FailOnWarnings: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	assert.True(t, result.FailedOnWarnings)
	assert.Nil(t, result.Plan)
	// testable property 8: Success() is purely blocks-based, ignoring failOnWarnings.
	assert.True(t, result.Success())
	assert.False(t, result.Blocked)
}

func TestCompile_UndeclaredChildReferenceSurfacesAsStructuralError(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{
			ID:   "branch",
			Type: domain.ContainerIf,
			Ports: map[string]domain.ScopePort{
				domain.PortThen: {NodeIDs: []string{"missing-leaf"}},
			},
		},
	}}

	result, err := Compile(dsl, CompileOptions{Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.Nil(t, result.Plan)
	_, ok := err.(*domain.StructuralError)
	assert.True(t, ok, "expected a *domain.StructuralError, got %T", err)
}
