package docs

import (
	"regexp"

	"github.com/relaybot/compiler/internal/domain"
)

type conditionDoc struct {
	DataContains         []string `json:"dataContains,omitempty" yaml:"dataContains,omitempty"`
	NodeType             string   `json:"nodeType,omitempty" yaml:"nodeType,omitempty"`
	NodeCategory         string   `json:"nodeCategory,omitempty" yaml:"nodeCategory,omitempty"`
	Capability           string   `json:"capability,omitempty" yaml:"capability,omitempty"`
	Egress               *bool    `json:"egress,omitempty" yaml:"egress,omitempty"`
	Writes               *bool    `json:"writes,omitempty" yaml:"writes,omitempty"`
	Deletes              *bool    `json:"deletes,omitempty" yaml:"deletes,omitempty"`
	PrivilegedAccess     *bool    `json:"privilegedAccess,omitempty" yaml:"privilegedAccess,omitempty"`
	NetworkDomainMatches string   `json:"networkDomainMatches,omitempty" yaml:"networkDomainMatches,omitempty"`
}

type actionDoc struct {
	Kind     string   `json:"kind" yaml:"kind" validate:"required,oneof=BLOCK WARN REQUIRE_CONTROLS"`
	Controls []string `json:"controls,omitempty" yaml:"controls,omitempty"`
	Severity string   `json:"severity,omitempty" yaml:"severity,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
}

type ruleDoc struct {
	ID          string       `json:"id" yaml:"id" validate:"required"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	When        conditionDoc `json:"when" yaml:"when"`
	Then        actionDoc    `json:"then" yaml:"then" validate:"required"`
}

type policyDefaultsDoc struct {
	Logging struct {
		Redact    bool `json:"redact" yaml:"redact"`
		StoreDays int  `json:"storeDays" yaml:"storeDays"`
	} `json:"logging" yaml:"logging"`
	Artifacts struct {
		EncryptAtRest bool `json:"encryptAtRest" yaml:"encryptAtRest"`
	} `json:"artifacts" yaml:"artifacts"`
}

type policyPackDoc struct {
	TenantID string            `json:"tenantId,omitempty" yaml:"tenantId,omitempty"`
	Version  string            `json:"version" yaml:"version" validate:"required"`
	Industry string            `json:"industry,omitempty" yaml:"industry,omitempty"`
	Defaults policyDefaultsDoc `json:"defaults" yaml:"defaults"`
	Rules    []ruleDoc         `json:"rules" yaml:"rules" validate:"dive"`
}

// LoadPolicyPack reads and validates a tenant override policy pack
// document from path.
func LoadPolicyPack(path string) (domain.PolicyPack, error) {
	var doc policyPackDoc
	if err := decodeFile(path, &doc); err != nil {
		return domain.PolicyPack{}, err
	}
	if err := validatorInstance().Struct(doc); err != nil {
		return domain.PolicyPack{}, loadDocValidationError("policy", err)
	}
	return convertPolicyPack(doc)
}

func convertPolicyPack(doc policyPackDoc) (domain.PolicyPack, error) {
	rules := make([]domain.Rule, len(doc.Rules))
	for i, r := range doc.Rules {
		cond, err := convertCondition(r.When)
		if err != nil {
			return domain.PolicyPack{}, domain.NewValidationError("rules["+r.ID+"].when", err.Error())
		}
		rules[i] = domain.Rule{
			ID:          r.ID,
			Description: r.Description,
			When:        cond,
			Then: domain.Action{
				Kind:     domain.ActionKind(r.Then.Kind),
				Controls: toControlTypes(r.Then.Controls),
				Severity: domain.Severity(r.Then.Severity),
				Message:  r.Then.Message,
			},
		}
	}

	return domain.PolicyPack{
		TenantID: doc.TenantID,
		Version:  doc.Version,
		Industry: doc.Industry,
		Defaults: domain.PolicyDefaults{
			Logging:   domain.LoggingDefaults{Redact: doc.Defaults.Logging.Redact, StoreDays: doc.Defaults.Logging.StoreDays},
			Artifacts: domain.ArtifactDefaults{EncryptAtRest: doc.Defaults.Artifacts.EncryptAtRest},
		},
		Rules: rules,
	}, nil
}

func convertCondition(c conditionDoc) (domain.Condition, error) {
	cond := domain.Condition{
		DataContains:     toClassifications(c.DataContains),
		NodeType:         c.NodeType,
		NodeCategory:     c.NodeCategory,
		Capability:       domain.Capability(c.Capability),
		Egress:           c.Egress,
		Writes:           c.Writes,
		Deletes:          c.Deletes,
		PrivilegedAccess: c.PrivilegedAccess,
	}
	if c.NetworkDomainMatches != "" {
		re, err := regexp.Compile(c.NetworkDomainMatches)
		if err != nil {
			return domain.Condition{}, err
		}
		cond.NetworkDomainMatches = re
	}
	return cond, nil
}
