package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybot/compiler/internal/domain"
)

func manifestFor(consumes, produces []domain.Classification, mode domain.PropagationMode) domain.NodeManifest {
	return domain.NodeManifest{
		Data: domain.DataEffect{Consumes: consumes, Produces: produces, Propagation: mode},
	}
}

func TestPropagateClassification_PassThrough(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "source", Type: "source"},
		{ID: "sink", Type: "sink"},
	}}
	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	registry := domain.NewManifestRegistry(map[string]domain.NodeManifest{
		"source": manifestFor(nil, []domain.Classification{domain.PHI}, domain.PropagationNone),
		"sink":   manifestFor([]domain.Classification{domain.Unclassified, domain.PII, domain.PHI}, nil, domain.PropagationPassThrough),
	})

	result := PropagateClassification(cfg, registry, nil)
	assert.Equal(t, domain.PHI, result.ByNode["source"].Out)
	assert.Equal(t, domain.PHI, result.ByNode["sink"].In)
	assert.Equal(t, domain.PHI, result.ByNode["sink"].Out)

	// monotonicity: OUT >= IN for every non-TRANSFORM leaf.
	for id, pair := range result.ByNode {
		assert.GreaterOrEqual(t, pair.Out.Rank(), pair.In.Rank(), "node %s", id)
	}
}

func TestPropagateClassification_TransformLoweringWithInjectedControls(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "source", Type: "source"},
		{ID: "redactor", Type: "redactor"},
	}}
	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	registry := domain.NewManifestRegistry(map[string]domain.NodeManifest{
		"source":   manifestFor(nil, []domain.Classification{domain.PHI}, domain.PropagationNone),
		"redactor": manifestFor([]domain.Classification{domain.PHI}, nil, domain.PropagationTransform),
	})

	injected := map[string]domain.ControlSet{
		"redactor": domain.NewControlSet(domain.ControlRedact),
	}

	result := PropagateClassification(cfg, registry, injected)
	assert.Equal(t, domain.PHI, result.ByNode["redactor"].In)
	assert.Equal(t, domain.Unclassified, result.ByNode["redactor"].Out)
}

func TestPropagateClassification_ConsumesWarning(t *testing.T) {
	dsl := domain.DSLRoot{Nodes: []domain.DSLNode{
		{ID: "source", Type: "source"},
		{ID: "restricted", Type: "restricted"},
	}}
	cfg, err := BuildCFG(dsl)
	require.NoError(t, err)

	registry := domain.NewManifestRegistry(map[string]domain.NodeManifest{
		"source":     manifestFor(nil, []domain.Classification{domain.Credentials}, domain.PropagationNone),
		"restricted": manifestFor([]domain.Classification{domain.Unclassified}, nil, domain.PropagationPassThrough),
	})

	result := PropagateClassification(cfg, registry, nil)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "restricted")
}
