package contracts

import (
	"time"

	"github.com/google/uuid"
)

// ScoreRecord is one row of score history
type ScoreRecord struct {
	ID           uuid.UUID      `json:"id"`
	EntityID     string         `json:"entity_id"`
	Components   map[string]int `json:"components"`
	OverallScore int            `json:"overall_score"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// FlagRecord is one row of flag history
type FlagRecord struct {
	ID         uuid.UUID `json:"id"`
	EntityID   string    `json:"entity_id"`
	Kind       FlagKind  `json:"kind"`
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewScoreRecord builds a history row from a computed score
func NewScoreRecord(score *CompositeScore) ScoreRecord {
	components := make(map[string]int, len(score.Components))
	for k, v := range score.Components {
		components[k] = v
	}
	return ScoreRecord{
		ID:           uuid.New(),
		EntityID:     score.EntityID,
		Components:   components,
		OverallScore: score.OverallScore,
		RecordedAt:   score.ComputedAt,
	}
}

// NewFlagRecords builds history rows from a detection run
func NewFlagRecords(flags FlagSet) []FlagRecord {
	records := make([]FlagRecord, 0, len(flags))
	for _, f := range flags {
		records = append(records, FlagRecord{
			ID:         uuid.New(),
			EntityID:   f.EntityID,
			Kind:       f.Kind,
			Score:      f.Score,
			RecordedAt: f.DetectedAt,
		})
	}
	return records
}
