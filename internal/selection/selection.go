// Package selection picks the final, budgeted set of candidates.
package selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rs/zerolog"

	"github.com/keagan/surgclip/internal/clips"
)

// Epsilon is the tolerance used when comparing confidences for equality.
const Epsilon = 1e-9

// Result is the outcome of a selection.
type Result struct {
	Entries []*clips.Candidate
	// Threshold is the confidence at the budget cutoff, 0 when everything fit.
	Threshold float64
	// Tied is the number of candidates sharing Threshold when a tie straddled
	// the cutoff and was broken at random.
	Tied int
	// Shortfall is how many entries the budget could not be filled with.
	// Select keeps every candidate within Epsilon of the cutoff, so it only
	// reports a shortfall when confidences are not comparable (NaN).
	Shortfall int
}

// NewRand returns a seeded generator for tie breaking.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Select returns at most max candidates ranked by confidence.
//
// Every candidate strictly above the cutoff confidence is kept. When several
// candidates share the cutoff confidence they are shuffled with rng and just
// enough are taken to fill the budget. A max of zero or less disables the cap.
// The input slice is not modified.
func Select(cands []*clips.Candidate, max int, rng *rand.Rand, logger zerolog.Logger) Result {
	sorted := append([]*clips.Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return clips.Less(sorted[i], sorted[j]) })

	if max <= 0 || len(sorted) <= max {
		logger.Info().
			Int("candidates", len(sorted)).
			Int("max_entries", max).
			Msg("all candidates fit within budget")
		return Result{Entries: sorted}
	}

	threshold := sorted[max-1].Confidence
	next := sorted[max].Confidence
	if threshold-next > Epsilon {
		logger.Info().
			Float64("threshold", threshold).
			Float64("next", next).
			Msg("no tie at cutoff, taking top entries")
		return Result{Entries: sorted[:max:max], Threshold: threshold}
	}

	var above, tied []*clips.Candidate
	for _, c := range sorted {
		switch {
		case c.Confidence-threshold > Epsilon:
			above = append(above, c)
		case math.Abs(c.Confidence-threshold) <= Epsilon:
			tied = append(tied, c)
		}
	}

	res := fill(above, tied, max, rng, logger)
	res.Threshold = threshold
	return res
}

// fill keeps every candidate in above and draws from tied until max entries
// are held. Entries comes back short, with Shortfall set, when tied runs out.
func fill(above, tied []*clips.Candidate, max int, rng *rand.Rand, logger zerolog.Logger) Result {
	res := Result{Tied: len(tied)}
	needed := max - len(above)
	if needed <= 0 {
		res.Entries = above[:max:max]
		return res
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	rng.Shuffle(len(tied), func(i, j int) { tied[i], tied[j] = tied[j], tied[i] })

	picked := tied
	if len(tied) < needed {
		res.Shortfall = needed - len(tied)
		logger.Warn().
			Int("tied", len(tied)).
			Int("needed", needed).
			Int("shortfall", res.Shortfall).
			Msg("not enough tied candidates to fill budget")
	} else {
		picked = tied[:needed]
	}
	sort.SliceStable(picked, func(i, j int) bool { return clips.Less(picked[i], picked[j]) })

	logger.Info().
		Int("guaranteed", len(above)).
		Int("tied", len(tied)).
		Int("picked", len(picked)).
		Msg("broke tie at cutoff at random")

	res.Entries = append(above[:len(above):len(above)], picked...)
	return res
}
