package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/redflags"
)

const (
	trailingYear     = 365 * 24 * time.Hour
	trailingHalfYear = 180 * 24 * time.Hour

	consistencySample = 4 // most recent filings used for the gap average

	auditBonus      = 5
	silencePenalty  = 10
	gapPenaltyScore = 10.0
)

var auditTerms = []string{"audit"}

// band is one row of a threshold table: value >= min → points
type band struct {
	min    float64
	points int
}

// bandPoints returns the points of the first matching row, or fallback
func bandPoints(table []band, value float64, fallback int) int {
	for _, b := range table {
		if value >= b.min {
			return b.points
		}
	}
	return fallback
}

var (
	pedigreeTenureBands = []band{{5, 40}, {3, 30}, {1, 20}}

	filingCountBands = []band{{4, 60}, {3, 45}, {2, 30}, {1, 15}}

	marketCapBands = []band{
		{10_000_000_000, 40},
		{2_000_000_000, 35},
		{500_000_000, 30},
		{100_000_000, 25},
		{25_000_000, 20},
	}
	momentumBands = []band{{50, 60}, {25, 50}, {10, 40}, {0, 30}, {-10, 20}, {-25, 10}}

	governanceTeamBands     = []band{{8, 35}, {5, 25}, {3, 15}}
	governanceMaterialBands = []band{{6, 35}, {4, 25}, {2, 15}}
	governanceTenureBands   = []band{{5, 30}, {3, 20}}
)

// scoreInput is the data one computation works on
type scoreInput struct {
	entity     *contracts.Entity
	filings    []contracts.FilingRecord
	executives []contracts.ExecutiveRecord
	flags      contracts.FlagSet
	now        time.Time
}

// pedigreeScore rates the executive roster: size, tenure, breadth
func pedigreeScore(executives []contracts.ExecutiveRecord) int {
	size := min(len(executives)*10, 30)
	tenure := bandPoints(pedigreeTenureBands, averageTenure(executives), 10)

	specs := make(map[string]struct{})
	for _, e := range executives {
		s := strings.ToLower(strings.TrimSpace(e.Specialization))
		if s != "" {
			specs[s] = struct{}{}
		}
	}
	diversity := min(len(specs)*10, 30)

	return clampInt(size+tenure+diversity, 0, 100)
}

// filingVelocityScore rates disclosure frequency and regularity
func filingVelocityScore(filings []contracts.FilingRecord, now time.Time) int {
	count := len(redflags.RecentFilings(filings, now, trailingYear))
	frequency := bandPoints(filingCountBands, float64(count), 0)

	consistency := 20
	if len(filings) >= 2 {
		recent := redflags.SortedNewestFirst(filings)
		if len(recent) > consistencySample {
			recent = recent[:consistencySample]
		}
		var totalDays float64
		for i := 0; i < len(recent)-1; i++ {
			totalDays += recent[i].FiledAt.Sub(recent[i+1].FiledAt).Hours() / 24
		}
		avgGap := totalDays / float64(len(recent)-1)
		switch {
		case avgGap <= 100:
			consistency = 40
		case avgGap <= 150:
			consistency = 30
		case avgGap <= 200:
			consistency = 20
		default:
			consistency = 10
		}
	}

	return clampInt(frequency+consistency, 0, 100)
}

// redFlagScore is the inverse of the summed flag scores
func redFlagScore(flags contracts.FlagSet) int {
	return int(clampFloat(100-flags.TotalScore(), 0, 100))
}

// growthScore rates size and recent price momentum
func growthScore(entity *contracts.Entity) int {
	size := bandPoints(marketCapBands, entity.MarketCap, 15)
	momentum := bandPoints(momentumBands, entity.PriceChangePercent, 0)
	return clampInt(size+momentum, 0, 100)
}

// governanceScore rates board depth, material disclosure and stability
func governanceScore(executives []contracts.ExecutiveRecord, filings []contracts.FilingRecord, now time.Time) int {
	team := bandPoints(governanceTeamBands, float64(len(executives)), 5)

	var material int
	for _, f := range redflags.RecentFilings(filings, now, trailingYear) {
		if f.Material {
			material++
		}
	}
	disclosure := bandPoints(governanceMaterialBands, float64(material), 5)
	tenure := bandPoints(governanceTenureBands, averageTenure(executives), 10)

	return clampInt(team+disclosure+tenure, 0, 100)
}

// adjustments returns the bonus/penalty applied to the weighted base
func adjustments(in scoreInput) int {
	var adj int

	for _, f := range redflags.RecentFilings(in.filings, in.now, trailingYear) {
		if redflags.ContainsAny(f.Type, auditTerms) || redflags.ContainsAny(f.Summary, auditTerms) {
			adj += auditBonus
			break
		}
	}

	silent := len(redflags.RecentFilings(in.filings, in.now, trailingHalfYear)) == 0
	gap, hasGap := in.flags.Get(contracts.FlagDisclosureGaps)
	if silent || (hasGap && gap.Score >= gapPenaltyScore) {
		adj -= silencePenalty
	}

	return adj
}

// compose computes every component and the adjusted overall score
func compose(in scoreInput) (overall int, components map[string]int) {
	components = map[string]int{
		contracts.ComponentPedigree:       pedigreeScore(in.executives),
		contracts.ComponentFilingVelocity: filingVelocityScore(in.filings, in.now),
		contracts.ComponentRedFlag:        redFlagScore(in.flags),
		contracts.ComponentGrowth:         growthScore(in.entity),
		contracts.ComponentGovernance:     governanceScore(in.executives, in.filings, in.now),
	}

	var base float64
	for _, key := range contracts.ComponentKeys {
		base += float64(components[key]) * contracts.ComponentWeights[key]
	}

	overall = int(clampFloat(base+float64(adjustments(in)), 0, 100))
	return overall, components
}

func averageTenure(executives []contracts.ExecutiveRecord) float64 {
	if len(executives) == 0 {
		return 0
	}
	var total float64
	for _, e := range executives {
		total += e.TenureYears
	}
	return total / float64(len(executives))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
