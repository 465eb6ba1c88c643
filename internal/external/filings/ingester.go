package filings

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/pkg/httputil"
)

// Sink persists parsed filings
type Sink interface {
	SaveBatch(ctx context.Context, filings []contracts.FilingRecord) error
}

// Ingester fetches index pages and stores the filings they list
// ⭐ SSOT: 공시 인덱스 수집은 여기서만
type Ingester struct {
	client *httputil.Client
	sink   Sink
	log    zerolog.Logger
}

// NewIngester creates an ingester
func NewIngester(client *httputil.Client, sink Sink, log zerolog.Logger) *Ingester {
	return &Ingester{
		client: client,
		sink:   sink,
		log:    log.With().Str("component", "filings.ingester").Logger(),
	}
}

// IngestURL downloads one index page for an entity and upserts its filings
func (i *Ingester) IngestURL(ctx context.Context, entityID, url string) (int, error) {
	body, err := i.client.GetBody(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch filing index: %w", err)
	}
	return i.IngestHTML(ctx, entityID, body)
}

// IngestHTML parses an already-downloaded index page and upserts its filings
func (i *Ingester) IngestHTML(ctx context.Context, entityID string, html []byte) (int, error) {
	records, err := ParseIndex(bytes.NewReader(html), entityID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		i.log.Warn().Str("entity_id", entityID).Msg("filing index contained no rows")
		return 0, nil
	}

	if err := i.sink.SaveBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("save filings: %w", err)
	}

	i.log.Info().
		Str("entity_id", entityID).
		Int("count", len(records)).
		Msg("filings ingested")
	return len(records), nil
}
