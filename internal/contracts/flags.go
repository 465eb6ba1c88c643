package contracts

import "time"

// FlagKind identifies one of the five red-flag categories
type FlagKind string

const (
	FlagConsolidationVelocity FlagKind = "CONSOLIDATION_VELOCITY"
	FlagFinancingVelocity     FlagKind = "FINANCING_VELOCITY"
	FlagExecutiveChurn        FlagKind = "EXECUTIVE_CHURN"
	FlagDisclosureGaps        FlagKind = "DISCLOSURE_GAPS"
	FlagDebtTrend             FlagKind = "DEBT_TREND"
)

// AllFlagKinds lists every category in detection order
var AllFlagKinds = []FlagKind{
	FlagConsolidationVelocity,
	FlagFinancingVelocity,
	FlagExecutiveChurn,
	FlagDisclosureGaps,
	FlagDebtTrend,
}

// Weight returns the fixed relative weight of the category.
// Weights sum to 1.0 across all kinds.
func (k FlagKind) Weight() float64 {
	switch k {
	case FlagConsolidationVelocity:
		return 0.30
	case FlagFinancingVelocity:
		return 0.25
	case FlagExecutiveChurn:
		return 0.20
	case FlagDisclosureGaps:
		return 0.15
	case FlagDebtTrend:
		return 0.10
	default:
		return 0
	}
}

// MaxScore returns the maximum contribution of the category (weight × 100)
func (k FlagKind) MaxScore() float64 {
	return k.Weight() * 100
}

// DetectedFlag is the output of one heuristic.
// Score is always in (0, Kind.MaxScore()].
type DetectedFlag struct {
	Kind        FlagKind  `json:"kind"`
	EntityID    string    `json:"entity_id"`
	Score       float64   `json:"score"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
}

// FlagSet holds at most one flag per kind
type FlagSet []DetectedFlag

// TotalScore sums the scores of every flag in the set
func (s FlagSet) TotalScore() float64 {
	var total float64
	for _, f := range s {
		total += f.Score
	}
	return total
}

// Get returns the flag of the given kind, if present
func (s FlagSet) Get(kind FlagKind) (DetectedFlag, bool) {
	for _, f := range s {
		if f.Kind == kind {
			return f, true
		}
	}
	return DetectedFlag{}, false
}

// Severity is the 4-level bucketing of a flag set's total score
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityForScore buckets a summed flag score.
// low < 30 ≤ moderate < 60 ≤ high ≤ 85 < critical
func SeverityForScore(total float64) Severity {
	switch {
	case total > 85:
		return SeverityCritical
	case total >= 60:
		return SeverityHigh
	case total >= 30:
		return SeverityModerate
	default:
		return SeverityLow
	}
}
