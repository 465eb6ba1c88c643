package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: 엔진이 소비하는 외부 협력자 인터페이스는 여기서만 정의

var (
	// ErrNotFound is returned when the requested entity has no metadata record
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument signals a caller contract violation
	ErrInvalidArgument = errors.New("invalid argument")
)

// FilingSource returns the filing history of an entity (any order)
type FilingSource interface {
	GetFilings(ctx context.Context, entityID string) ([]FilingRecord, error)
}

// ExecutiveSource returns the current executive roster of an entity
type ExecutiveSource interface {
	GetExecutives(ctx context.Context, entityID string) ([]ExecutiveRecord, error)
}

// EntitySource returns entity metadata or ErrNotFound
type EntitySource interface {
	GetEntity(ctx context.Context, entityID string) (*Entity, error)
}

// HistoryStore is the append-only store of computed scores and flags.
// Query methods return records with RecordedAt >= since, oldest first.
type HistoryStore interface {
	AppendScore(ctx context.Context, record ScoreRecord) error
	AppendFlags(ctx context.Context, records []FlagRecord) error
	QueryScores(ctx context.Context, entityID string, since time.Time) ([]ScoreRecord, error)
	QueryFlags(ctx context.Context, entityID string, since time.Time) ([]FlagRecord, error)
}

// ScoreCache stores the latest composite score per entity.
// Freshness is decided by the caller from CompositeScore.ComputedAt.
type ScoreCache interface {
	Get(ctx context.Context, entityID string) (*CompositeScore, bool, error)
	Set(ctx context.Context, entityID string, score *CompositeScore) error
	Invalidate(ctx context.Context, entityID string) error
	InvalidateAll(ctx context.Context) error
}
