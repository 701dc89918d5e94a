package lifecycle

import (
	"fmt"
	"strings"

	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/review"
	"mortgage-workflow/internal/underwriting"
)

// Readiness is the state materialized from reviews, underwriting and the ledger before a guard runs.
type Readiness struct {
	Underwriting        underwriting.Status `json:"underwriting"`
	EquityScheduleFound bool                `json:"equityScheduleFound"`
	EquityFullyPaid     bool                `json:"equityFullyPaid"`
	InternalClearance   review.Clearance    `json:"internalClearance"`
	BankClearance       review.Clearance    `json:"bankClearance"`
}

// GuardResult carries the unmet condition when a guard fails.
type GuardResult struct {
	Satisfied bool
	Condition string
}

func pass() GuardResult { return GuardResult{Satisfied: true} }

func fail(format string, args ...interface{}) GuardResult {
	return GuardResult{Condition: fmt.Sprintf(format, args...)}
}

// Guard is a named, pure predicate over Readiness and the command's context.
type Guard struct {
	Name  string
	Check func(Readiness, TransitionContext) GuardResult
}

var UnderwritingApproved = Guard{
	Name: "underwritingApproved",
	Check: func(r Readiness, tc TransitionContext) GuardResult {
		d := r.Underwriting.Decision
		if d == nil {
			return fail("no underwriting decision recorded")
		}
		if uc, ok := tc.(UnderwritingContext); ok && uc.DecisionID != d.ID {
			return fail("decision %s is not the current decision %s", uc.DecisionID, d.ID)
		}
		switch d.Decision {
		case models.OutcomeApprove:
			return pass()
		case models.OutcomeConditional:
			if len(r.Underwriting.Unsatisfied) > 0 {
				return fail("conditional approval has unsatisfied conditions: %s", strings.Join(r.Underwriting.Unsatisfied, ", "))
			}
			return pass()
		}
		return fail("current underwriting decision is %s", d.Decision)
	},
}

var EquityFullyPaid = Guard{
	Name: "equityFullyPaid",
	Check: func(r Readiness, _ TransitionContext) GuardResult {
		if !r.EquityScheduleFound {
			return fail("no equity schedule exists")
		}
		if !r.EquityFullyPaid {
			return fail("equity schedule has unpaid installments")
		}
		return pass()
	},
}

var InternalReviewCleared = Guard{
	Name: "internalReviewCleared",
	Check: func(r Readiness, _ TransitionContext) GuardResult {
		return clearance(r.InternalClearance)
	},
}

var BankReviewCleared = Guard{
	Name: "bankReviewCleared",
	Check: func(r Readiness, _ TransitionContext) GuardResult {
		return clearance(r.BankClearance)
	},
}

var ConditionsSatisfied = Guard{
	Name: "conditionsSatisfied",
	Check: func(r Readiness, _ TransitionContext) GuardResult {
		if r.Underwriting.Decision == nil {
			return fail("no underwriting decision recorded")
		}
		if r.Underwriting.Decision.Decision == models.OutcomeReject {
			return fail("current underwriting decision is %s", models.OutcomeReject)
		}
		if len(r.Underwriting.Unsatisfied) > 0 {
			return fail("required conditions unsatisfied: %s", strings.Join(r.Underwriting.Unsatisfied, ", "))
		}
		return pass()
	},
}

func clearance(c review.Clearance) GuardResult {
	if !c.Cleared() {
		return fail("%s review pending on documents: %s", c.Party, strings.Join(c.Pending, ", "))
	}
	return pass()
}
