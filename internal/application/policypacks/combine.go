package policypacks

import "github.com/relaybot/compiler/internal/domain"

// CombinePolicyPacks merges multiple packs into one effective pack: the
// most restrictive defaults win (max storeDays, redact/encrypt if any
// pack requires it), and rules are de-duplicated by id with the first
// pack in packs taking precedence (spec.md §6: "combinePolicyPacks ...
// takes the most restrictive defaults ... de-duplicates rule ids (first
// wins)").
func CombinePolicyPacks(packs ...domain.PolicyPack) domain.PolicyPack {
	if len(packs) == 0 {
		return domain.PolicyPack{}
	}

	combined := domain.PolicyPack{
		TenantID: packs[0].TenantID,
		Version:  packs[0].Version,
		Industry: packs[0].Industry,
	}

	seen := make(map[string]bool)
	for _, p := range packs {
		if p.Defaults.Logging.StoreDays > combined.Defaults.Logging.StoreDays {
			combined.Defaults.Logging.StoreDays = p.Defaults.Logging.StoreDays
		}
		if p.Defaults.Logging.Redact {
			combined.Defaults.Logging.Redact = true
		}
		if p.Defaults.Artifacts.EncryptAtRest {
			combined.Defaults.Artifacts.EncryptAtRest = true
		}
		for _, rule := range p.Rules {
			if seen[rule.ID] {
				continue
			}
			seen[rule.ID] = true
			combined.Rules = append(combined.Rules, rule)
		}
	}
	return combined
}
