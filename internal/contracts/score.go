package contracts

import "time"

// Composite score component keys
const (
	ComponentPedigree       = "pedigree"
	ComponentFilingVelocity = "filing_velocity"
	ComponentRedFlag        = "red_flag"
	ComponentGrowth         = "growth"
	ComponentGovernance     = "governance"
)

// ComponentWeights are the fixed weights of the composite score (합 = 1.0)
var ComponentWeights = map[string]float64{
	ComponentPedigree:       0.25,
	ComponentFilingVelocity: 0.20,
	ComponentRedFlag:        0.25,
	ComponentGrowth:         0.15,
	ComponentGovernance:     0.15,
}

// ComponentKeys lists the five component keys in a stable order
var ComponentKeys = []string{
	ComponentPedigree,
	ComponentFilingVelocity,
	ComponentRedFlag,
	ComponentGrowth,
	ComponentGovernance,
}

// CompositeScore is the aggregate investment score of an entity
// ⭐ SSOT: 종합 점수 타입은 여기서만 정의
type CompositeScore struct {
	EntityID     string         `json:"entity_id"`
	OverallScore int            `json:"overall_score"` // 0 ~ 100
	Components   map[string]int `json:"components"`    // each 0 ~ 100
	ComputedAt   time.Time      `json:"computed_at"`
}

// Age returns how old the score is relative to now
func (s *CompositeScore) Age(now time.Time) time.Duration {
	return now.Sub(s.ComputedAt)
}

// Clone returns a deep copy so cached values are never shared with callers
func (s *CompositeScore) Clone() *CompositeScore {
	if s == nil {
		return nil
	}
	out := *s
	out.Components = make(map[string]int, len(s.Components))
	for k, v := range s.Components {
		out.Components[k] = v
	}
	return &out
}
