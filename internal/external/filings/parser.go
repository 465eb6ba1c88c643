// Package filings ingests filing records from HTML disclosure index pages.
package filings

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// Accepted date layouts in the first column
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseIndex extracts filings from an index page.
// Each data row is: date | type | summary | material (optional).
// Rows without a parseable date (headers, separators) are skipped.
func ParseIndex(r io.Reader, entityID string) ([]contracts.FilingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	rows := doc.Find("table.filings tr")
	if rows.Length() == 0 {
		rows = doc.Find("table tr")
	}

	var out []contracts.FilingRecord
	rows.Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		filedAt, ok := parseDate(cellText(cells, 0))
		if !ok {
			return
		}

		typ := cellText(cells, 1)
		if typ == "" {
			return
		}

		out = append(out, contracts.FilingRecord{
			EntityID: entityID,
			Type:     typ,
			Summary:  cellText(cells, 2),
			FiledAt:  filedAt,
			Material: parseMaterial(cellText(cells, 3)),
		})
	})

	return out, nil
}

func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return strings.Join(strings.Fields(cells.Eq(i).Text()), " ")
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseMaterial(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "true", "material", "✓":
		return true
	default:
		return false
	}
}
