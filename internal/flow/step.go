// Package flow owns the onboarding step sequence and the per-session answer
// store from which prompt context and keywords are derived.
package flow

// Step is a named stage in the onboarding sequence
type Step string

const (
	StepProduct         Step = "product"
	StepMarket          Step = "market"
	StepDifferentiation Step = "differentiation"
	StepCompanySize     Step = "company_size"
	StepLinkedIn        Step = "linkedin"
	StepLocation        Step = "location"
	StepComplete        Step = "complete"
)

// Steps is the fixed onboarding order. Transitions only move forward.
var Steps = []Step{
	StepProduct,
	StepMarket,
	StepDifferentiation,
	StepCompanySize,
	StepLinkedIn,
	StepLocation,
	StepComplete,
}

// ParseStep returns the Step named s and whether it is part of the sequence
func ParseStep(s string) (Step, bool) {
	for _, step := range Steps {
		if string(step) == s {
			return step, true
		}
	}
	return Step(s), false
}

// NextStep returns the step following current. An unrecognized step restarts
// the flow at product; complete is terminal and maps to itself.
func NextStep(current Step) Step {
	for i, step := range Steps {
		if step != current {
			continue
		}
		if i < len(Steps)-1 {
			return Steps[i+1]
		}
		return StepComplete
	}
	return StepProduct
}

// synthesizes reports whether answers to this step feed keyword synthesis
func (s Step) synthesizes() bool {
	switch s {
	case StepProduct, StepMarket, StepDifferentiation, StepCompanySize:
		return true
	}
	return false
}
