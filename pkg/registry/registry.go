// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/underwriting"
)

const fileFormatVersion = "1.0.0"

// New returns an empty registry.
func New() *RuleRegistry {
	return &RuleRegistry{
		Version:  fileFormatVersion,
		RuleSets: []*underwriting.RuleSet{},
		index:    make(map[string]*underwriting.RuleSet),
	}
}

// LoadRegistry reads a registry file, validating every rule set against the rule set schema.
func LoadRegistry(path string) (*RuleRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}

	reg := New()
	reg.Version = file.Version
	reg.LastUpdated = file.LastUpdated
	for i, raw := range file.RuleSets {
		rs, err := underwriting.ParseRuleSet(raw)
		if err != nil {
			return nil, fmt.Errorf("rule set %d: %w", i, err)
		}
		if err := reg.add(rs); err != nil {
			return nil, err
		}
	}
	if file.DefaultVersion != "" {
		if err := reg.SetDefault(file.DefaultVersion); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// RuleSet returns the published rule set for version.
func (r *RuleRegistry) RuleSet(version string) (*underwriting.RuleSet, error) {
	rs, ok := r.index[version]
	if !ok {
		return nil, errors.NewNotFoundError("rule set", version)
	}
	return rs, nil
}

func (r *RuleRegistry) DefaultVersion() string {
	return r.Default
}

// Versions lists published versions in lexical order.
func (r *RuleRegistry) Versions() []string {
	out := make([]string, 0, len(r.index))
	for v := range r.index {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Add publishes a new version. Published versions are immutable so past decisions stay reproducible.
func (r *RuleRegistry) Add(rs *underwriting.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	if err := r.add(rs); err != nil {
		return err
	}
	if r.Default == "" {
		r.Default = rs.Version
	}
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (r *RuleRegistry) add(rs *underwriting.RuleSet) error {
	if _, exists := r.index[rs.Version]; exists {
		return errors.NewValidationError(fmt.Sprintf("rule set %s is already published", rs.Version))
	}
	r.index[rs.Version] = rs
	r.RuleSets = append(r.RuleSets, rs)
	return nil
}

func (r *RuleRegistry) SetDefault(version string) error {
	if _, ok := r.index[version]; !ok {
		return errors.NewNotFoundError("rule set", version)
	}
	r.Default = version
	return nil
}

// Save writes the registry as indented JSON, creating the parent directory.
func (r *RuleRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
