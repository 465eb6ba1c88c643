package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// Repository implements contracts.HistoryStore on Postgres
// ⭐ SSOT: 점수/플래그 이력 저장소는 여기서만 (append-only)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendScore inserts one score record
func (r *Repository) AppendScore(ctx context.Context, record contracts.ScoreRecord) error {
	components, err := json.Marshal(record.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}

	query := `
		INSERT INTO vettr.score_history (id, entity_id, overall_score, components, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.pool.Exec(ctx, query,
		record.ID, record.EntityID, record.OverallScore, components, record.RecordedAt)
	return err
}

// AppendFlags inserts the flag records of one detection run in a batch
func (r *Repository) AppendFlags(ctx context.Context, records []contracts.FlagRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO vettr.flag_history (id, entity_id, kind, score, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, rec.ID, rec.EntityID, string(rec.Kind), rec.Score, rec.RecordedAt)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// QueryScores returns score records since the given time, oldest first
func (r *Repository) QueryScores(ctx context.Context, entityID string, since time.Time) ([]contracts.ScoreRecord, error) {
	query := `
		SELECT id::text, entity_id, overall_score, components, recorded_at
		FROM vettr.score_history
		WHERE entity_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC`

	rows, err := r.pool.Query(ctx, query, entityID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []contracts.ScoreRecord
	for rows.Next() {
		var (
			rec        contracts.ScoreRecord
			id         string
			components []byte
		)
		if err := rows.Scan(&id, &rec.EntityID, &rec.OverallScore, &components, &rec.RecordedAt); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse score record id: %w", err)
		}
		if err := json.Unmarshal(components, &rec.Components); err != nil {
			return nil, fmt.Errorf("unmarshal components: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// QueryFlags returns flag records since the given time, oldest first
func (r *Repository) QueryFlags(ctx context.Context, entityID string, since time.Time) ([]contracts.FlagRecord, error) {
	query := `
		SELECT id::text, entity_id, kind, score, recorded_at
		FROM vettr.flag_history
		WHERE entity_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC`

	rows, err := r.pool.Query(ctx, query, entityID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []contracts.FlagRecord
	for rows.Next() {
		var (
			rec  contracts.FlagRecord
			id   string
			kind string
		)
		if err := rows.Scan(&id, &rec.EntityID, &kind, &rec.Score, &rec.RecordedAt); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse flag record id: %w", err)
		}
		rec.Kind = contracts.FlagKind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}
