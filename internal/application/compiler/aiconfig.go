package compiler

import (
	"fmt"
	"strings"

	"github.com/relaybot/compiler/internal/domain"
)

// apiKeyProviders lists model providers that are expected to carry an
// api_key field (spec.md §4.1).
var apiKeyProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"groq":      true,
	"mistral":   true,
	"cohere":    true,
}

// AIConfigIssues is the result of the AI-Config Validator pre-pass: errors
// block compilation before the CFG is ever built, warnings are carried
// through to the final CompileResult (spec.md §4.1).
type AIConfigIssues struct {
	Errors   []string
	Warnings []string
}

// HasErrors reports whether any blocking error was found.
func (i AIConfigIssues) HasErrors() bool {
	return len(i.Errors) > 0
}

// ValidateAIConfig runs the recursive pre-pass over dsl.Nodes, applying
// type-specific checks to every node whose type starts with "ai." (spec.md
// §4.1). It is oblivious to container nesting beyond the flat node list —
// the checks below only look at a node's own Config, never at its scope.
func ValidateAIConfig(dsl domain.DSLRoot) AIConfigIssues {
	var issues AIConfigIssues
	for i := range dsl.Nodes {
		node := &dsl.Nodes[i]
		if !strings.HasPrefix(node.Type, "ai.") {
			continue
		}
		validateAINode(node, &issues)
	}
	return issues
}

func validateAINode(node *domain.DSLNode, issues *AIConfigIssues) {
	switch node.Type {
	case "ai.agent":
		validateAIAgent(node, issues)
	case "ai.model":
		validateAIModel(node, issues)
	case "ai.embeddings":
		validateAIEmbeddings(node, issues)
	}
}

func nodeLabel(node *domain.DSLNode) string {
	if name, ok := node.Config["name"]; ok {
		if s, ok := name.AsString(); ok && s != "" {
			return s
		}
	}
	return node.ID
}

func validateAIAgent(node *domain.DSLNode, issues *AIConfigIssues) {
	model, hasModel := node.Config["model"]
	if !hasModel || model.IsNull() {
		issues.Errors = append(issues.Errors,
			fmt.Sprintf("AI Agent '%s' has no AI Model connected", nodeLabel(node)))
		return
	}

	provider, _ := fieldString(model, "provider")
	switch {
	case apiKeyProviders[provider]:
		if _, ok := fieldString(model, "api_key"); !ok {
			issues.Warnings = append(issues.Warnings,
				fmt.Sprintf("AI Agent '%s' model provider '%s' is missing api_key", nodeLabel(node), provider))
		}
	case provider == "azure":
		_, hasBase := fieldString(model, "base_url")
		_, hasVersion := fieldString(model, "api_version")
		if !hasBase || !hasVersion {
			issues.Warnings = append(issues.Warnings,
				fmt.Sprintf("AI Agent '%s' model provider 'azure' is missing base_url or api_version", nodeLabel(node)))
		}
	case provider == "aws":
		if _, ok := fieldString(model, "region"); !ok {
			issues.Warnings = append(issues.Warnings,
				fmt.Sprintf("AI Agent '%s' model provider 'aws' is missing region", nodeLabel(node)))
		}
	}

	if memory, ok := node.Config["memory"]; ok && !memory.IsNull() {
		memType, _ := fieldString(memory, "memory_type")
		if memType == "retrieve" || memType == "both" {
			if _, ok := memory.Field("embeddings"); !ok {
				issues.Warnings = append(issues.Warnings,
					fmt.Sprintf("AI Agent '%s' has memory attached without embeddings", nodeLabel(node)))
			}
		}
	}
}

func validateAIModel(node *domain.DSLNode, issues *AIConfigIssues) {
	if _, ok := fieldString(node.Config, "model"); !ok {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("AI Model '%s' is missing model", nodeLabel(node)))
	}
	provider, _ := fieldString(node.Config, "provider")
	if provider == "ollama" {
		if _, ok := fieldString(node.Config, "base_url"); !ok {
			issues.Warnings = append(issues.Warnings,
				fmt.Sprintf("AI Model '%s' provider 'ollama' is missing base_url", nodeLabel(node)))
		}
	}
}

func validateAIEmbeddings(node *domain.DSLNode, issues *AIConfigIssues) {
	provider, _ := fieldString(node.Config, "provider")
	if provider == "ollama" {
		if _, ok := fieldString(node.Config, "base_url"); !ok {
			issues.Warnings = append(issues.Warnings,
				fmt.Sprintf("AI Embeddings '%s' provider 'ollama' is missing base_url", nodeLabel(node)))
		}
	}
}

// fieldString reads a string field either directly off an Object (when obj
// is a Config map wrapped as a Value via domain.NewObject) or off a
// domain.Object map, normalizing both call shapes used above.
func fieldString(v interface{}, key string) (string, bool) {
	switch t := v.(type) {
	case domain.Value:
		field, ok := t.Field(key)
		if !ok {
			return "", false
		}
		return field.AsString()
	case domain.Object:
		field, ok := t[key]
		if !ok {
			return "", false
		}
		return field.AsString()
	default:
		return "", false
	}
}
