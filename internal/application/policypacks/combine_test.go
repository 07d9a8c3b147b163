package policypacks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaybot/compiler/internal/domain"
)

func TestCombinePolicyPacks_TakesMostRestrictiveDefaults(t *testing.T) {
	lenient := domain.PolicyPack{
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: false, StoreDays: 30},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: false},
		},
	}
	strict := domain.PolicyPack{
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: true, StoreDays: 2555},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: true},
		},
	}

	combined := CombinePolicyPacks(lenient, strict)
	assert.True(t, combined.Defaults.Logging.Redact)
	assert.Equal(t, 2555, combined.Defaults.Logging.StoreDays)
	assert.True(t, combined.Defaults.Artifacts.EncryptAtRest)
}

func TestCombinePolicyPacks_DeduplicatesRuleIDsFirstWins(t *testing.T) {
	first := domain.PolicyPack{Rules: []domain.Rule{
		{ID: "shared-rule", Description: "from first pack"},
		{ID: "only-in-first"},
	}}
	second := domain.PolicyPack{Rules: []domain.Rule{
		{ID: "shared-rule", Description: "from second pack"},
		{ID: "only-in-second"},
	}}

	combined := CombinePolicyPacks(first, second)
	ids := map[string]bool{}
	for _, r := range combined.Rules {
		ids[r.ID] = true
	}
	assert.True(t, ids["only-in-first"])
	assert.True(t, ids["only-in-second"])

	for _, r := range combined.Rules {
		if r.ID == "shared-rule" {
			assert.Equal(t, "from first pack", r.Description)
		}
	}
}

func TestCombinePolicyPacks_EmptyInputYieldsZeroValue(t *testing.T) {
	combined := CombinePolicyPacks()
	assert.Equal(t, domain.PolicyPack{}, combined)
}
