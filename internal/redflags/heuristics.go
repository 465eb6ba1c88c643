package redflags

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// Recency windows
const (
	velocityWindow = 365 * 24 * time.Hour
	debtWindow     = 180 * 24 * time.Hour

	churnTenureYears = 2.0
	minGapDays       = 120
)

// Match patterns (case-insensitive substrings)
var (
	consolidationTerms = []string{"consolidation"}
	financingTerms     = []string{"financing", "offering", "private placement", "equity financing"}
	debtTerms          = []string{"debt", "loan", "borrowing", "credit facility"}
)

// Input is everything a heuristic may look at
type Input struct {
	EntityID   string
	Filings    []contracts.FilingRecord
	Executives []contracts.ExecutiveRecord
	Now        time.Time
}

// Heuristic evaluates one red-flag category.
// Evaluate returns false when the category produces no flag.
type Heuristic interface {
	Kind() contracts.FlagKind
	Evaluate(in Input) (contracts.DetectedFlag, bool)
}

// step is one row of a decision table: metric >= min → score
type step struct {
	min   float64
	score float64
}

// stepScore walks a table ordered by descending min and returns the first match.
// 0 means "no flag".
func stepScore(table []step, metric float64) float64 {
	for _, s := range table {
		if metric >= s.min {
			return s.score
		}
	}
	return 0
}

var (
	consolidationSteps = []step{{3, 30.0}, {2, 22.5}, {1, 15.0}}
	financingSteps     = []step{{4, 25.0}, {3, 18.75}, {2, 12.5}, {1, 6.25}}
	churnSteps         = []step{{0.60, 20.0}, {0.40, 15.0}, {0.25, 10.0}}
	gapSteps           = []step{{240, 15.0}, {180, 11.25}, {minGapDays, 7.5}}
	debtSteps          = []step{{0.60, 10.0}, {0.40, 7.5}, {0.25, 5.0}}
)

// DefaultHeuristics returns the five standard categories in detection order
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		ConsolidationVelocity{},
		FinancingVelocity{},
		ExecutiveChurn{},
		DisclosureGaps{},
		DebtTrend{},
	}
}

// ConsolidationVelocity flags repeated share consolidations in the trailing year
type ConsolidationVelocity struct{}

func (ConsolidationVelocity) Kind() contracts.FlagKind { return contracts.FlagConsolidationVelocity }

func (h ConsolidationVelocity) Evaluate(in Input) (contracts.DetectedFlag, bool) {
	count := countMatching(RecentFilings(in.Filings, in.Now, velocityWindow), consolidationTerms, true)
	score := stepScore(consolidationSteps, float64(count))
	if score <= 0 {
		return contracts.DetectedFlag{}, false
	}
	return newFlag(h.Kind(), in, score,
		fmt.Sprintf("%d share consolidation filing(s) in the last 12 months", count)), true
}

// FinancingVelocity flags frequent financings (dilution) in the trailing year
type FinancingVelocity struct{}

func (FinancingVelocity) Kind() contracts.FlagKind { return contracts.FlagFinancingVelocity }

func (h FinancingVelocity) Evaluate(in Input) (contracts.DetectedFlag, bool) {
	count := countMatching(RecentFilings(in.Filings, in.Now, velocityWindow), financingTerms, true)
	score := stepScore(financingSteps, float64(count))
	if score <= 0 {
		return contracts.DetectedFlag{}, false
	}
	return newFlag(h.Kind(), in, score,
		fmt.Sprintf("%d financing filing(s) in the last 12 months", count)), true
}

// ExecutiveChurn flags a roster dominated by recently appointed executives
type ExecutiveChurn struct{}

func (ExecutiveChurn) Kind() contracts.FlagKind { return contracts.FlagExecutiveChurn }

func (h ExecutiveChurn) Evaluate(in Input) (contracts.DetectedFlag, bool) {
	rate, ok := ChurnRate(in.Executives)
	if !ok {
		return contracts.DetectedFlag{}, false
	}
	score := stepScore(churnSteps, rate)
	if score <= 0 {
		return contracts.DetectedFlag{}, false
	}
	return newFlag(h.Kind(), in, score,
		fmt.Sprintf("%.0f%% of executives have under %.0f years of tenure", rate*100, churnTenureYears)), true
}

// ChurnRate returns the share of executives with tenure under two years.
// ok is false for an empty roster.
func ChurnRate(executives []contracts.ExecutiveRecord) (rate float64, ok bool) {
	if len(executives) == 0 {
		return 0, false
	}
	var recent int
	for _, e := range executives {
		if e.TenureYears < churnTenureYears {
			recent++
		}
	}
	return float64(recent) / float64(len(executives)), true
}

// DisclosureGaps flags long silences between consecutive filings
type DisclosureGaps struct{}

func (DisclosureGaps) Kind() contracts.FlagKind { return contracts.FlagDisclosureGaps }

func (h DisclosureGaps) Evaluate(in Input) (contracts.DetectedFlag, bool) {
	gap := MaxDisclosureGap(in.Filings)
	if gap <= minGapDays {
		return contracts.DetectedFlag{}, false
	}
	score := stepScore(gapSteps, float64(gap))
	if score <= 0 {
		return contracts.DetectedFlag{}, false
	}
	return newFlag(h.Kind(), in, score,
		fmt.Sprintf("%d-day gap between consecutive filings", gap)), true
}

// MaxDisclosureGap returns the longest gap in whole days between consecutive
// filings, or 0 with fewer than two filings
func MaxDisclosureGap(filings []contracts.FilingRecord) int {
	if len(filings) < 2 {
		return 0
	}
	sorted := SortedNewestFirst(filings)

	var maxGap int
	for i := 0; i < len(sorted)-1; i++ {
		gap := int(sorted[i].FiledAt.Sub(sorted[i+1].FiledAt).Hours() / 24)
		if gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap
}

// DebtTrend flags recent filings dominated by debt/borrowing language
type DebtTrend struct{}

func (DebtTrend) Kind() contracts.FlagKind { return contracts.FlagDebtTrend }

func (h DebtTrend) Evaluate(in Input) (contracts.DetectedFlag, bool) {
	recent := RecentFilings(in.Filings, in.Now, debtWindow)
	if len(recent) == 0 {
		return contracts.DetectedFlag{}, false
	}
	mentions := countMatching(recent, debtTerms, false)
	rate := float64(mentions) / float64(len(recent))
	score := stepScore(debtSteps, rate)
	if score <= 0 {
		return contracts.DetectedFlag{}, false
	}
	return newFlag(h.Kind(), in, score,
		fmt.Sprintf("%.0f%% of filings in the last 6 months mention debt", rate*100)), true
}

func newFlag(kind contracts.FlagKind, in Input, score float64, description string) contracts.DetectedFlag {
	return contracts.DetectedFlag{
		Kind:        kind,
		EntityID:    in.EntityID,
		Score:       score,
		Description: description,
		DetectedAt:  in.Now,
	}
}

// RecentFilings keeps filings dated on or after now-window
func RecentFilings(filings []contracts.FilingRecord, now time.Time, window time.Duration) []contracts.FilingRecord {
	cutoff := now.Add(-window)
	out := make([]contracts.FilingRecord, 0, len(filings))
	for _, f := range filings {
		if !f.FiledAt.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out
}

// countMatching counts filings whose summary (and optionally type) contains any term
func countMatching(filings []contracts.FilingRecord, terms []string, includeType bool) int {
	var count int
	for _, f := range filings {
		if ContainsAny(f.Summary, terms) || (includeType && ContainsAny(f.Type, terms)) {
			count++
		}
	}
	return count
}

// ContainsAny reports whether text contains any of the terms, ignoring case
func ContainsAny(text string, terms []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// SortedNewestFirst returns a copy of filings ordered by FiledAt, newest first
func SortedNewestFirst(filings []contracts.FilingRecord) []contracts.FilingRecord {
	sorted := make([]contracts.FilingRecord, len(filings))
	copy(sorted, filings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FiledAt.After(sorted[j].FiledAt)
	})
	return sorted
}
