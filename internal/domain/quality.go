package domain

import "fmt"

// Tier is the discrete data-quality grade derived from the continuous score.
type Tier string

const (
	TierExcellent Tier = "excellent" // score >= 0.90
	TierGood      Tier = "good"      // score >= 0.70
	TierFair      Tier = "fair"      // score >= 0.50
	TierPoor      Tier = "poor"      // everything below
)

// Physical plausibility bounds for the outlier checks, in clean units.
const (
	maxTempUpperC = 50.0
	maxTempLowerC = -50.0
	minTempUpperC = 40.0
	minTempLowerC = -60.0
	precipUpperMM = 1000.0
)

// Penalty weights.
const (
	missingPenalty     = 0.2
	outlierPenalty     = 0.1
	consistencyPenalty = 0.3
)

// Quality is the grade assigned to one observation.
type Quality struct {
	Tier          Tier
	Score         float64
	MissingValues int
	OutlierCount  int
	Notes         string
}

// ScoreQuality grades an observation from its three clean values. It is pure
// and total: any combination of nil and non-nil inputs yields a grade, and
// the score is clamped to [0,1] after every penalty.
func ScoreQuality(maxC, minC, precipMM *float64) Quality {
	q := Quality{Score: 1.0}

	for _, v := range []*float64{maxC, minC, precipMM} {
		if v == nil {
			q.MissingValues++
		}
	}
	q.Score = clamp01(q.Score - missingPenalty*float64(q.MissingValues))

	if maxC != nil && (*maxC > maxTempUpperC || *maxC < maxTempLowerC) {
		q.OutlierCount++
		q.Score = clamp01(q.Score - outlierPenalty)
	}
	if minC != nil && (*minC > minTempUpperC || *minC < minTempLowerC) {
		q.OutlierCount++
		q.Score = clamp01(q.Score - outlierPenalty)
	}
	if precipMM != nil && *precipMM > precipUpperMM {
		q.OutlierCount++
		q.Score = clamp01(q.Score - outlierPenalty)
	}

	if maxC != nil && minC != nil && *maxC < *minC {
		q.Score = clamp01(q.Score - consistencyPenalty)
	}

	q.Tier = tierFor(q.Score)
	q.Notes = fmt.Sprintf("Missing: %d, Outliers: %d", q.MissingValues, q.OutlierCount)
	return q
}

// tierFor maps a final score onto its tier. Boundaries are inclusive on the
// lower bound of each tier.
func tierFor(score float64) Tier {
	switch {
	case score >= 0.90:
		return TierExcellent
	case score >= 0.70:
		return TierGood
	case score >= 0.50:
		return TierFair
	default:
		return TierPoor
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
