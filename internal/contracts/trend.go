package contracts

import "time"

// TrendDirection classifies the recent trajectory of a series
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendStable    TrendDirection = "STABLE"
	TrendDeclining TrendDirection = "DECLINING" // score series
	TrendWorsening TrendDirection = "WORSENING" // flag series
)

// TrendResult is derived from a history window; never persisted
type TrendResult struct {
	EntityID  string         `json:"entity_id"`
	Direction TrendDirection `json:"direction"`
	Momentum  float64        `json:"momentum"` // change per week

	// Score trend
	ScoreChange   int `json:"score_change"`
	CurrentScore  int `json:"current_score"`
	PreviousScore int `json:"previous_score"`

	// Flag trend
	RecentFlagCount   int     `json:"recent_flag_count"`
	ResolvedFlagCount int     `json:"resolved_flag_count"`
	RecentFlagScore   float64 `json:"recent_flag_score"`
	PreviousFlagScore float64 `json:"previous_flag_score"`

	Samples    int       `json:"samples"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// StableTrend is the default result for an entity without enough history
func StableTrend(entityID string, now time.Time) *TrendResult {
	return &TrendResult{
		EntityID:   entityID,
		Direction:  TrendStable,
		AnalyzedAt: now,
	}
}
