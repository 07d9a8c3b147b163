// Package docs loads DSL, manifest, and policy-pack documents from disk
// (YAML or JSON) and runs them through go-playground/validator struct tags
// before converting them into the compiler's internal domain types
// (spec.md §3, "file-loading validation"). This is a syntactic pre-check —
// it never performs the compiler's own semantic checks.
package docs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeFile reads path and unmarshals it into out, choosing YAML or JSON
// decoding by file extension (.yaml/.yml vs everything else).
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		// yaml.v3 decodes directly into struct tags named "yaml"; our wire
		// structs tag fields with both "yaml" and "json" so either decoder
		// can drive them.
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing yaml %s: %w", path, err)
		}
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parsing json %s: %w", path, err)
	}
	return nil
}
