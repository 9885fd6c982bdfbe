package sentiment

import (
	"math"
	"strings"

	"github.com/poiesic/placerank/core"
)

const negationWord = "not"

// ParseUserSentiment turns a tag string such as "joy not sadness" into
// {joy: +1, sadness: -1}. Tags are lower-cased; a "not" negates the next tag
// and is itself dropped. When a tag repeats, the last occurrence wins.
func ParseUserSentiment(tags string) core.RequestedSentiment {
	out := core.RequestedSentiment{}
	negate := false
	for _, tok := range strings.Fields(tags) {
		tok = core.NormalizeLabel(tok)
		if tok == negationWord {
			negate = true
			continue
		}
		if negate {
			out[tok] = -1
		} else {
			out[tok] = 1
		}
		negate = false
	}
	return out
}

// CosineSimilarity compares two sparse vectors. The dot product runs over
// labels present in both; each norm runs over its whole vector. If either
// norm is zero the similarity is 0.
func CosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for k, v := range small {
		if w, ok := large[k]; ok {
			dot += v * w
		}
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (na * nb)
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}

func norm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
