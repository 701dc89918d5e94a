// Package mortgagetest builds an in-memory mortgage service for tests.
package mortgagetest

import (
	"testing"
	"time"

	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage"
	"mortgage-workflow/internal/underwriting"
	"mortgage-workflow/pkg/registry"

	"github.com/shopspring/decimal"
)

// RulesVersion is the default rule set registered by Registry.
const RulesVersion = "test.1"

func weight(v float64) *float64 { return &v }

// Registry holds one rule set: kycVerified is required, debtToIncome <= 0.4 carries the
// REDUCE_DEBT condition, and creditScore >= 650. Approve at 70, conditional at 40.
func Registry(t testing.TB) *registry.RuleRegistry {
	t.Helper()
	reg := registry.New()
	err := reg.Add(&underwriting.RuleSet{
		Version:              RulesVersion,
		ApproveThreshold:     70,
		ConditionalThreshold: 40,
		Rules: []underwriting.Rule{
			{ID: "kyc", Field: "kycVerified", Operator: underwriting.OpIsTrue, Required: true},
			{ID: "dti", Field: "debtToIncome", Operator: underwriting.OpLessOrEqual, Threshold: 0.4, Weight: weight(0.5),
				Condition: &models.UnderwritingCondition{Code: "REDUCE_DEBT", Required: true, Message: "reduce monthly obligations"}},
			{ID: "credit", Field: "creditScore", Operator: underwriting.OpGreaterOrEqual, Threshold: 650, Weight: weight(0.5)},
		},
	})
	if err != nil {
		t.Fatalf("register rule set: %v", err)
	}
	if err := reg.SetDefault(RulesVersion); err != nil {
		t.Fatalf("set default rule set: %v", err)
	}
	return reg
}

// NewService returns a service over a fresh memory backend with a local lock.
func NewService(t testing.TB) (*mortgage.Service, mortgage.Backend) {
	t.Helper()
	backend := mortgage.NewMemoryBackend()
	lg := logger.NewTestLogger(t)
	components := mortgage.Assemble(backend, lock.NewLocalLocker(lock.Options{WaitFor: time.Second}), mortgage.Settings{
		Rules:           Registry(t),
		AuditorPageSize: 50,
	}, lg)
	return mortgage.NewService(components, lg), backend
}

// Money parses a decimal literal and panics on malformed input.
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
