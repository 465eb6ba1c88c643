package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// ⭐ SSOT: 종목/공시/임원 레코드 저장소는 여기서만

// EntityRepository implements contracts.EntitySource on Postgres
type EntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{pool: pool}
}

// GetEntity retrieves entity metadata; unknown ids return contracts.ErrNotFound
func (r *EntityRepository) GetEntity(ctx context.Context, entityID string) (*contracts.Entity, error) {
	query := `
		SELECT id, name, market_cap, price_change_pct, sector
		FROM vettr.entities
		WHERE id = $1
	`

	var e contracts.Entity
	err := r.pool.QueryRow(ctx, query, entityID).Scan(&e.ID, &e.Name, &e.MarketCap, &e.PriceChangePercent, &e.Sector)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", entityID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Save upserts entity metadata
func (r *EntityRepository) Save(ctx context.Context, e contracts.Entity) error {
	query := `
		INSERT INTO vettr.entities (id, name, market_cap, price_change_pct, sector, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			market_cap = EXCLUDED.market_cap,
			price_change_pct = EXCLUDED.price_change_pct,
			sector = EXCLUDED.sector,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, e.ID, e.Name, e.MarketCap, e.PriceChangePercent, e.Sector)
	return err
}

// FilingRepository implements contracts.FilingSource on Postgres
type FilingRepository struct {
	pool *pgxpool.Pool
}

// NewFilingRepository creates a new filing repository
func NewFilingRepository(pool *pgxpool.Pool) *FilingRepository {
	return &FilingRepository{pool: pool}
}

// GetFilings retrieves every filing of an entity, newest first
func (r *FilingRepository) GetFilings(ctx context.Context, entityID string) ([]contracts.FilingRecord, error) {
	query := `
		SELECT entity_id, filing_type, summary, filed_at, material
		FROM vettr.filings
		WHERE entity_id = $1
		ORDER BY filed_at DESC
	`

	rows, err := r.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filings []contracts.FilingRecord
	for rows.Next() {
		var f contracts.FilingRecord
		if err := rows.Scan(&f.EntityID, &f.Type, &f.Summary, &f.FiledAt, &f.Material); err != nil {
			return nil, err
		}
		filings = append(filings, f)
	}
	return filings, rows.Err()
}

// SaveBatch upserts filings in a single round trip
func (r *FilingRepository) SaveBatch(ctx context.Context, filings []contracts.FilingRecord) error {
	if len(filings) == 0 {
		return nil
	}

	query := `
		INSERT INTO vettr.filings (entity_id, filing_type, summary, filed_at, material)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, filed_at, filing_type) DO UPDATE SET
			summary = EXCLUDED.summary,
			material = EXCLUDED.material
	`

	batch := &pgx.Batch{}
	for _, f := range filings {
		batch.Queue(query, f.EntityID, f.Type, f.Summary, f.FiledAt, f.Material)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range filings {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ExecutiveRepository implements contracts.ExecutiveSource on Postgres
type ExecutiveRepository struct {
	pool *pgxpool.Pool
}

// NewExecutiveRepository creates a new executive repository
func NewExecutiveRepository(pool *pgxpool.Pool) *ExecutiveRepository {
	return &ExecutiveRepository{pool: pool}
}

// GetExecutives retrieves the current roster of an entity
func (r *ExecutiveRepository) GetExecutives(ctx context.Context, entityID string) ([]contracts.ExecutiveRecord, error) {
	query := `
		SELECT entity_id, name, title, tenure_years, specialization
		FROM vettr.executives
		WHERE entity_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executives []contracts.ExecutiveRecord
	for rows.Next() {
		var e contracts.ExecutiveRecord
		if err := rows.Scan(&e.EntityID, &e.Name, &e.Title, &e.TenureYears, &e.Specialization); err != nil {
			return nil, err
		}
		executives = append(executives, e)
	}
	return executives, rows.Err()
}

// ReplaceRoster swaps an entity's roster inside one transaction
func (r *ExecutiveRepository) ReplaceRoster(ctx context.Context, entityID string, executives []contracts.ExecutiveRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM vettr.executives WHERE entity_id = $1`, entityID); err != nil {
		return err
	}

	for _, e := range executives {
		_, err := tx.Exec(ctx, `
			INSERT INTO vettr.executives (entity_id, name, title, tenure_years, specialization)
			VALUES ($1, $2, $3, $4, $5)
		`, entityID, e.Name, e.Title, e.TenureYears, e.Specialization)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
