package domain

import "github.com/shopspring/decimal"

// Allocation is one line of a buy order: how much quote currency goes into a symbol.
type Allocation struct {
	Symbol string          `yaml:"symbol" json:"symbol"`
	Amount decimal.Decimal `yaml:"amount" json:"amount"`
}

// AllocationPlan describes what gets bought on each trigger.
type AllocationPlan struct {
	// Core allocations go to the broker on every trigger.
	Core []Allocation `yaml:"core" json:"core"`
	// Speculative allocations are added to the broker order every SpeculativeEvery-th trigger.
	Speculative []Allocation `yaml:"speculative" json:"speculative"`
	// SpeculativeEvery is the trigger cadence for speculative extras, e.g. 3.
	SpeculativeEvery int `yaml:"speculative_every" json:"speculative_every"`
	// Equities are executed manually by the operator, listed in the personal message.
	Equities []Allocation `yaml:"equities" json:"equities"`
}

// DefaultAllocationPlan returns the stock plan: core crypto on every trigger,
// speculative extras on every 3rd, equities for manual execution.
func DefaultAllocationPlan() AllocationPlan {
	return AllocationPlan{
		Core: []Allocation{
			{Symbol: "LINK", Amount: decimal.RequireFromString("666.67")},
			{Symbol: "ONDO", Amount: decimal.RequireFromString("533.33")},
			{Symbol: "TAO", Amount: decimal.RequireFromString("533.33")},
			{Symbol: "RENDER", Amount: decimal.RequireFromString("533.33")},
			{Symbol: "TRAC", Amount: decimal.RequireFromString("333.33")},
		},
		Speculative: []Allocation{
			{Symbol: "BANANA", Amount: decimal.RequireFromString("100.00")},
			{Symbol: "BONK", Amount: decimal.RequireFromString("100.00")},
		},
		SpeculativeEvery: 3,
		Equities: []Allocation{
			{Symbol: "COIN", Amount: decimal.RequireFromString("233.33")},
			{Symbol: "NVDA", Amount: decimal.RequireFromString("200.00")},
			{Symbol: "PLTR", Amount: decimal.RequireFromString("166.67")},
		},
	}
}

// IncludesSpeculative reports whether the given trigger number gets the
// speculative extras.
func (p AllocationPlan) IncludesSpeculative(triggerNumber int) bool {
	return p.SpeculativeEvery > 0 && triggerNumber%p.SpeculativeEvery == 0
}

// BrokerAllocations returns the broker order lines for the given trigger number.
func (p AllocationPlan) BrokerAllocations(triggerNumber int) []Allocation {
	out := make([]Allocation, 0, len(p.Core)+len(p.Speculative))
	out = append(out, p.Core...)
	if p.IncludesSpeculative(triggerNumber) {
		out = append(out, p.Speculative...)
	}
	return out
}

// Total sums allocation amounts.
func Total(allocations []Allocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocations {
		sum = sum.Add(a.Amount)
	}
	return sum
}
