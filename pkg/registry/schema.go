// pkg/registry/schema.go
package registry

import (
	"encoding/json"

	"mortgage-workflow/internal/underwriting"
)

// RuleRegistry is the on-disk catalogue of published underwriting rule sets.
type RuleRegistry struct {
	Version     string                  `json:"version"`
	LastUpdated string                  `json:"lastUpdated"`
	Default     string                  `json:"defaultVersion"`
	RuleSets    []*underwriting.RuleSet `json:"ruleSets"`

	index map[string]*underwriting.RuleSet
}

// registryFile defers rule set decoding so every entry goes through schema validation.
type registryFile struct {
	Version        string            `json:"version"`
	LastUpdated    string            `json:"lastUpdated"`
	DefaultVersion string            `json:"defaultVersion"`
	RuleSets       []json.RawMessage `json:"ruleSets"`
}
