package contracts

import "time"

// FilingRecord is one disclosure event for an entity
// ⭐ SSOT: 공시 레코드 타입은 여기서만 정의 (엔진에서는 읽기 전용)
type FilingRecord struct {
	EntityID string    `json:"entity_id"`
	Type     string    `json:"type"` // free-form, matched case-insensitively
	Summary  string    `json:"summary"`
	FiledAt  time.Time `json:"filed_at"`
	Material bool      `json:"material"`
}

// ExecutiveRecord is one officer/director entry for an entity
type ExecutiveRecord struct {
	EntityID       string  `json:"entity_id"`
	Name           string  `json:"name"`
	Title          string  `json:"title"`
	TenureYears    float64 `json:"tenure_years"`
	Specialization string  `json:"specialization"`
}

// Entity is the metadata record of a stock/issuer
type Entity struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	MarketCap          float64 `json:"market_cap"`           // USD
	PriceChangePercent float64 `json:"price_change_percent"` // e.g. 12.5 = +12.5%
	Sector             string  `json:"sector"`
}
