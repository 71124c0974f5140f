package domain

import (
	"sort"
	"time"
)

// Granularity selects the grouping period for materialized summaries.
type Granularity string

const (
	GranularityAnnual    Granularity = "annual"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
)

// Granularities lists every supported granularity, in recompute order.
func Granularities() []Granularity {
	return []Granularity{GranularityAnnual, GranularityMonthly, GranularityQuarterly}
}

// Valid reports whether g names a supported granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityAnnual, GranularityMonthly, GranularityQuarterly:
		return true
	}
	return false
}

// FactMetrics is the slice of a weather fact the aggregation engine reads:
// grouping key plus the clean metrics and quality score.
type FactMetrics struct {
	StationID    string
	Date         time.Time
	MaxTempC     *float64
	MinTempC     *float64
	PrecipMM     *float64
	QualityScore float64
}

// Summary is one materialized aggregation row, keyed by
// (station, granularity, period start). It has no lifecycle beyond the last
// computed state and is replaced in full on every recompute.
type Summary struct {
	StationID   string
	Granularity Granularity
	PeriodStart time.Time
	Year        int
	Month       int // zero unless monthly
	Quarter     int // zero unless quarterly

	AvgMaxTempC     *float64
	AvgMinTempC     *float64
	TotalPrecipMM   *float64
	RecordCount     int
	AvgQualityScore float64

	ComputedAt time.Time
}

// periodKey groups facts within one station and period.
type periodKey struct {
	stationID   string
	periodStart time.Time
}

// group accumulates one period's metrics. Nil values do not contribute to
// sums or denominators; a metric with no non-nil contributions stays nil in
// the resulting summary.
type group struct {
	sumMax, sumMin float64
	nMax, nMin     int
	sumPrecip      float64
	nPrecip        int
	sumScore       float64
	count          int
}

// Aggregate recomputes every summary group for one granularity from the
// given fact metrics. The result is deterministic: rows are sorted by
// station then period start.
func Aggregate(g Granularity, facts []FactMetrics) []Summary {
	groups := make(map[periodKey]*group)
	for _, f := range facts {
		key := periodKey{stationID: f.StationID, periodStart: periodStart(g, f.Date)}
		grp := groups[key]
		if grp == nil {
			grp = &group{}
			groups[key] = grp
		}
		if f.MaxTempC != nil {
			grp.sumMax += *f.MaxTempC
			grp.nMax++
		}
		if f.MinTempC != nil {
			grp.sumMin += *f.MinTempC
			grp.nMin++
		}
		if f.PrecipMM != nil {
			grp.sumPrecip += *f.PrecipMM
			grp.nPrecip++
		}
		grp.sumScore += f.QualityScore
		grp.count++
	}

	now := clock.Now().UTC()
	summaries := make([]Summary, 0, len(groups))
	for key, grp := range groups {
		s := Summary{
			StationID:       key.stationID,
			Granularity:     g,
			PeriodStart:     key.periodStart,
			Year:            key.periodStart.Year(),
			RecordCount:     grp.count,
			AvgQualityScore: grp.sumScore / float64(grp.count),
			ComputedAt:      now,
		}
		switch g {
		case GranularityMonthly:
			s.Month = int(key.periodStart.Month())
		case GranularityQuarterly:
			s.Quarter = (int(key.periodStart.Month())-1)/3 + 1
		}
		if grp.nMax > 0 {
			avg := grp.sumMax / float64(grp.nMax)
			s.AvgMaxTempC = &avg
		}
		if grp.nMin > 0 {
			avg := grp.sumMin / float64(grp.nMin)
			s.AvgMinTempC = &avg
		}
		if grp.nPrecip > 0 {
			total := grp.sumPrecip
			s.TotalPrecipMM = &total
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StationID != summaries[j].StationID {
			return summaries[i].StationID < summaries[j].StationID
		}
		return summaries[i].PeriodStart.Before(summaries[j].PeriodStart)
	})
	return summaries
}

// periodStart normalizes an observation date to the first day of its period.
func periodStart(g Granularity, date time.Time) time.Time {
	switch g {
	case GranularityMonthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityQuarterly:
		quarter := (int(date.Month()) - 1) / 3
		return time.Date(date.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}
