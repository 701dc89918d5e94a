// Package underwriting evaluates declarative, versioned rule sets against an application snapshot.
package underwriting

import (
	"encoding/json"
	"fmt"
	"strings"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

type Operator string

const (
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "neq"
	OpIsTrue         Operator = "true"
	OpIsFalse        Operator = "false"
)

func (o Operator) flag() bool {
	return o == OpIsTrue || o == OpIsFalse
}

// Rule compares one snapshot field against a threshold.
// Required rules reject on failure. A failed optional rule contributes its Condition when the outcome is CONDITIONAL.
type Rule struct {
	ID          string                        `json:"id"`
	Description string                        `json:"description,omitempty"`
	Field       string                        `json:"field"`
	Operator    Operator                      `json:"operator"`
	Threshold   float64                       `json:"threshold,omitempty"`
	Weight      *float64                      `json:"weight,omitempty"`
	Required    bool                          `json:"required,omitempty"`
	Condition   *models.UnderwritingCondition `json:"condition,omitempty"`
}

// RuleSet is one published version of the underwriting rules.
type RuleSet struct {
	Version              string  `json:"version"`
	Description          string  `json:"description,omitempty"`
	ApproveThreshold     float64 `json:"approveThreshold"`
	ConditionalThreshold float64 `json:"conditionalThreshold"`
	Rules                []Rule  `json:"rules"`
}

// Snapshot is the numeric and boolean view of an application that rules read.
type Snapshot struct {
	ApplicationID string             `json:"applicationId"`
	Numbers       map[string]float64 `json:"numbers,omitempty"`
	Flags         map[string]bool    `json:"flags,omitempty"`
}

const ruleSetSchema = `{
  "type": "object",
  "required": ["version", "approveThreshold", "conditionalThreshold", "rules"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "approveThreshold": {"type": "number"},
    "conditionalThreshold": {"type": "number"},
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "field", "operator"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "field": {"type": "string", "minLength": 1},
          "operator": {"enum": ["gt", "gte", "lt", "lte", "eq", "neq", "true", "false"]},
          "threshold": {"type": "number"},
          "weight": {"type": "number", "minimum": 0},
          "required": {"type": "boolean"},
          "condition": {
            "type": "object",
            "required": ["code"],
            "properties": {
              "code": {"type": "string", "minLength": 1},
              "required": {"type": "boolean"},
              "message": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

// ParseRuleSet validates a JSON rule set document and decodes it.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(ruleSetSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, errors.NewValidationError("rule set is not valid JSON: " + err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.NewValidationError("rule set schema violation: " + strings.Join(msgs, "; "))
	}

	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, errors.NewValidationError("rule set decode: " + err.Error())
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks the constraints the schema cannot express.
func (rs *RuleSet) Validate() error {
	if strings.TrimSpace(rs.Version) == "" {
		return errors.NewValidationError("rule set version is required")
	}
	if len(rs.Rules) == 0 {
		return errors.NewValidationError("rule set has no rules")
	}
	if rs.ConditionalThreshold > rs.ApproveThreshold {
		return errors.NewValidationError("conditionalThreshold must not exceed approveThreshold")
	}
	seen := make(map[string]bool, len(rs.Rules))
	for _, r := range rs.Rules {
		if seen[r.ID] {
			return errors.NewValidationError(fmt.Sprintf("duplicate rule id %q", r.ID))
		}
		seen[r.ID] = true
		switch r.Operator {
		case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpEqual, OpNotEqual, OpIsTrue, OpIsFalse:
		default:
			return errors.NewValidationError(fmt.Sprintf("rule %s: unknown operator %q", r.ID, r.Operator))
		}
		if r.Weight != nil && *r.Weight < 0 {
			return errors.NewValidationError(fmt.Sprintf("rule %s: weight must be non-negative", r.ID))
		}
	}
	return nil
}

// check reports whether the rule passes. A field missing from the snapshot fails the rule.
func (r Rule) check(s Snapshot) (bool, string) {
	if r.Operator.flag() {
		v, ok := s.Flags[r.Field]
		if !ok {
			return false, fmt.Sprintf("%s: %s missing", r.ID, r.Field)
		}
		if v != (r.Operator == OpIsTrue) {
			return false, fmt.Sprintf("%s: %s is %t", r.ID, r.Field, v)
		}
		return true, ""
	}

	v, ok := s.Numbers[r.Field]
	if !ok {
		return false, fmt.Sprintf("%s: %s missing", r.ID, r.Field)
	}
	var passed bool
	switch r.Operator {
	case OpGreaterThan:
		passed = v > r.Threshold
	case OpGreaterOrEqual:
		passed = v >= r.Threshold
	case OpLessThan:
		passed = v < r.Threshold
	case OpLessOrEqual:
		passed = v <= r.Threshold
	case OpEqual:
		passed = v == r.Threshold
	case OpNotEqual:
		passed = v != r.Threshold
	}
	if !passed {
		return false, fmt.Sprintf("%s: %s=%g not %s %g", r.ID, r.Field, v, r.Operator, r.Threshold)
	}
	return true, ""
}
