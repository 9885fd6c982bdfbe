package benchmark

import "github.com/poiesic/placerank/core"

// DefaultEBeta weights recall in the E measure.
const DefaultEBeta = 1.5

// RankedPrecision is the precision of the first Rank answers paired with
// the recall of the first Rank answers.
type RankedPrecision struct {
	Rank      int
	Precision float64
	Recall    float64
}

func intersect(relevant, answer []core.ListingID) int {
	set := make(map[core.ListingID]struct{}, len(relevant))
	for _, id := range relevant {
		set[id] = struct{}{}
	}
	n := 0
	seen := make(map[core.ListingID]struct{}, len(answer))
	for _, id := range answer {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}

// Recall is the fraction of relevant listings that were retrieved.
// It is 0 when nothing is relevant.
func Recall(relevant, answer []core.ListingID) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(intersect(relevant, answer)) / float64(len(relevant))
}

// Precision is the fraction of retrieved listings that are relevant.
// It is 0 when nothing was retrieved.
func Precision(relevant, answer []core.ListingID) float64 {
	if len(answer) == 0 {
		return 0
	}
	return float64(intersect(relevant, answer)) / float64(len(answer))
}

// harmonic is the weighted harmonic mean of p and r, 0 if either is 0.
func harmonic(p, r, pWeight, rWeight float64) float64 {
	if p <= 0 || r <= 0 {
		return 0
	}
	return (pWeight + rWeight) / (pWeight/p + rWeight/r)
}

// F1 is the harmonic mean of precision and recall.
func F1(p, r float64) float64 {
	return harmonic(p, r, 1, 1)
}

// E is van Rijsbergen's effectiveness measure; lower is better.
func E(p, r, beta float64) float64 {
	return 1 - harmonic(p, r, 1, beta*beta)
}

// PrecisionAtRanks returns precision and recall for every prefix of answer.
func PrecisionAtRanks(relevant, answer []core.ListingID) []RankedPrecision {
	out := make([]RankedPrecision, 0, len(answer))
	for i := 1; i <= len(answer); i++ {
		out = append(out, RankedPrecision{
			Rank:      i,
			Precision: Precision(relevant, answer[:i]),
			Recall:    Recall(relevant, answer[:i]),
		})
	}
	return out
}

// PrecisionAtRecallLevels keeps the first rank and every rank at which
// recall increases.
func PrecisionAtRecallLevels(relevant, answer []core.ListingID) []RankedPrecision {
	ranked := PrecisionAtRanks(relevant, answer)
	if len(ranked) == 0 {
		return ranked
	}
	out := ranked[:1:1]
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Recall > ranked[i-1].Recall {
			out = append(out, ranked[i])
		}
	}
	return out
}

// AveragePrecision is the mean precision over the recall levels.
func AveragePrecision(relevant, answer []core.ListingID) float64 {
	levels := PrecisionAtRecallLevels(relevant, answer)
	values := make([]float64, len(levels))
	for i, l := range levels {
		values[i] = l.Precision
	}
	return Mean(values)
}

// Mean is the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
