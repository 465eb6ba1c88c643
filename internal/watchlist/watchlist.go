// Package watchlist loads the set of entities kept warm by the scheduler.
package watchlist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// Watchlist is the YAML document
type Watchlist struct {
	Name     string  `yaml:"name" json:"name"`
	Entities []Entry `yaml:"entities" json:"entities"`
}

// Entry is one watched entity; metadata fields are optional
type Entry struct {
	ID                 string  `yaml:"id" json:"id"`
	Name               string  `yaml:"name,omitempty" json:"name,omitempty"`
	Sector             string  `yaml:"sector,omitempty" json:"sector,omitempty"`
	MarketCap          float64 `yaml:"market_cap,omitempty" json:"market_cap,omitempty"`
	PriceChangePercent float64 `yaml:"price_change_pct,omitempty" json:"price_change_pct,omitempty"`
}

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates a watchlist file
func Load(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return Parse(data)
}

// Parse decodes a watchlist document.
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func Parse(data []byte) (*Watchlist, error) {
	var wl Watchlist
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wl); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}

	if err := Validate(&wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

// Validate rejects empty and duplicate ids
func Validate(wl *Watchlist) error {
	if len(wl.Entities) == 0 {
		return ValidationError{"entities", "at least one entity required"}
	}

	seen := make(map[string]bool, len(wl.Entities))
	for i, e := range wl.Entities {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return ValidationError{fmt.Sprintf("entities[%d].id", i), "required"}
		}
		if seen[id] {
			return ValidationError{fmt.Sprintf("entities[%d].id", i), fmt.Sprintf("duplicate id %q", id)}
		}
		if e.MarketCap < 0 {
			return ValidationError{fmt.Sprintf("entities[%d].market_cap", i), "must be >= 0"}
		}
		seen[id] = true
	}
	return nil
}

// IDs returns the entity ids in file order
func (wl *Watchlist) IDs() []string {
	ids := make([]string, 0, len(wl.Entities))
	for _, e := range wl.Entities {
		ids = append(ids, strings.TrimSpace(e.ID))
	}
	return ids
}

// ToEntities converts entries to entity metadata for seeding record stores
func (wl *Watchlist) ToEntities() []contracts.Entity {
	out := make([]contracts.Entity, 0, len(wl.Entities))
	for _, e := range wl.Entities {
		out = append(out, contracts.Entity{
			ID:                 strings.TrimSpace(e.ID),
			Name:               e.Name,
			MarketCap:          e.MarketCap,
			PriceChangePercent: e.PriceChangePercent,
			Sector:             e.Sector,
		})
	}
	return out
}

// Hash returns a SHA256 of the canonical JSON form, logged with each refresh run
func Hash(wl *Watchlist) (string, error) {
	data, err := json.Marshal(wl)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
