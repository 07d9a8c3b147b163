package docs

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/relaybot/compiler/internal/domain"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// dslOutputsDoc mirrors domain.NodeOutputs on the wire.
type dslOutputsDoc struct {
	Success string `json:"success,omitempty" yaml:"success,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Done    string `json:"done,omitempty" yaml:"done,omitempty"`
}

// dslPortDoc mirrors domain.ScopePort on the wire.
type dslPortDoc struct {
	NodeIDs []string `json:"nodeIds" yaml:"nodeIds" validate:"dive,required"`
	EntryID string   `json:"entryId" yaml:"entryId"`
}

// dslNodeDoc is the wire shape of one domain.DSLNode.
type dslNodeDoc struct {
	ID       string                `json:"id" yaml:"id" validate:"required"`
	Type     string                `json:"type" yaml:"type" validate:"required"`
	Config   map[string]domain.Value `json:"config" yaml:"config"`
	Outputs  dslOutputsDoc         `json:"outputs" yaml:"outputs"`
	Children []string              `json:"children,omitempty" yaml:"children,omitempty"`
	Ports    map[string]dslPortDoc `json:"ports,omitempty" yaml:"ports,omitempty"`
}

// dslBotDoc mirrors domain.BotMeta on the wire.
type dslBotDoc struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// dslRootDoc is the wire shape of a full bot definition document.
type dslRootDoc struct {
	Version   string                   `json:"version" yaml:"version" validate:"required"`
	Bot       dslBotDoc                `json:"bot" yaml:"bot" validate:"required"`
	Nodes     []dslNodeDoc             `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Variables map[string]domain.Value  `json:"variables,omitempty" yaml:"variables,omitempty"`
	Triggers  []string                 `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

// LoadDSL reads and validates a bot definition document from path,
// returning its domain.DSLRoot form.
func LoadDSL(path string) (domain.DSLRoot, error) {
	var doc dslRootDoc
	if err := decodeFile(path, &doc); err != nil {
		return domain.DSLRoot{}, err
	}
	if err := validatorInstance().Struct(doc); err != nil {
		return domain.DSLRoot{}, loadDocValidationError("dsl", err)
	}
	return convertDSLRoot(doc), nil
}

func convertDSLRoot(doc dslRootDoc) domain.DSLRoot {
	nodes := make([]domain.DSLNode, len(doc.Nodes))
	for i, n := range doc.Nodes {
		ports := make(map[string]domain.ScopePort, len(n.Ports))
		for name, p := range n.Ports {
			ports[name] = domain.ScopePort{NodeIDs: p.NodeIDs, EntryID: p.EntryID}
		}
		nodes[i] = domain.DSLNode{
			ID:   n.ID,
			Type: n.Type,
			Config: domain.Object(n.Config),
			Outputs: domain.NodeOutputs{
				Success: n.Outputs.Success,
				Error:   n.Outputs.Error,
				Done:    n.Outputs.Done,
			},
			Children: n.Children,
			Ports:    ports,
		}
	}
	return domain.DSLRoot{
		Version: doc.Version,
		Bot: domain.BotMeta{
			ID:          doc.Bot.ID,
			Name:        doc.Bot.Name,
			Description: doc.Bot.Description,
		},
		Nodes:     nodes,
		Variables: domain.Object(doc.Variables),
		Triggers:  doc.Triggers,
	}
}

// loadDocValidationError renders a validator.ValidationErrors into the
// field/message shape domain.ValidationError expects, falling back to the
// raw error string for any other failure (malformed JSON/YAML, etc).
func loadDocValidationError(field string, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return domain.NewValidationError(verrs[0].Namespace(), verrs[0].Tag())
	}
	return domain.NewValidationError(field, fmt.Sprintf("%v", err))
}
