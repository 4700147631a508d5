// Package fusion combines independently-ranked lexical and vector result
// lists into one ranked list via weighted reciprocal rank fusion.
package fusion

import "sort"

// Candidate is one entry in a ranked input list, identified by id with
// whatever payload the caller wants carried through to the fused result.
type Candidate struct {
	ID      string
	Payload any
}

// Result is one fused, normalised hit.
type Result struct {
	ID      string
	Score   float64
	Source  string
	Payload any
}

// Options tunes the fusion algorithm; the zero value is invalid, use
// DefaultOptions.
type Options struct {
	CandidateLimit  int
	FirstListWeight float64
	TopRankBonus    float64
	MinScore        float64
	RRFK            float64
}

// DefaultOptions matches the engine's documented defaults.
func DefaultOptions() Options {
	return Options{
		CandidateLimit:  30,
		FirstListWeight: 2.0,
		TopRankBonus:    0.05,
		MinScore:        0.25,
		RRFK:            60,
	}
}

const (
	sourceLexical = "lex"
	sourceVector  = "vec"
	sourceHybrid  = "hybrid"
)

type accumulator struct {
	score   float64
	sources map[string]bool
	payload any
}

// Fuse combines a lexical list and a vector list, both already ranked
// best-first, into one descending-score result set. Lexical is always
// treated as the first list and receives FirstListWeight; the vector
// list receives weight 1. Entries appearing in both lists are tagged
// "hybrid"; entries unique to one list keep that list's source tag.
func Fuse(lexical, vector []Candidate, opts Options) []Result {
	acc := make(map[string]*accumulator)
	order := make([]string, 0, len(lexical)+len(vector))

	contribute := func(list []Candidate, weight float64, source string) {
		limit := len(list)
		if opts.CandidateLimit > 0 && limit > opts.CandidateLimit {
			limit = opts.CandidateLimit
		}
		for rank := 0; rank < limit; rank++ {
			c := list[rank]
			score := weight * (1.0 / (float64(rank) + opts.RRFK))
			if rank == 0 {
				score += opts.TopRankBonus
			}
			a, ok := acc[c.ID]
			if !ok {
				a = &accumulator{sources: make(map[string]bool), payload: c.Payload}
				acc[c.ID] = a
				order = append(order, c.ID)
			}
			a.score += score
			a.sources[source] = true
		}
	}

	contribute(lexical, opts.FirstListWeight, sourceLexical)
	contribute(vector, 1.0, sourceVector)

	var maxScore float64
	for _, a := range acc {
		if a.score > maxScore {
			maxScore = a.score
		}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		a := acc[id]
		normalized := 0.0
		if maxScore > 0 {
			normalized = a.score / maxScore
		}
		if normalized < opts.MinScore {
			continue
		}
		results = append(results, Result{
			ID:      id,
			Score:   normalized,
			Source:  sourceOf(a.sources),
			Payload: a.payload,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func sourceOf(sources map[string]bool) string {
	if sources[sourceLexical] && sources[sourceVector] {
		return sourceHybrid
	}
	if sources[sourceLexical] {
		return sourceLexical
	}
	return sourceVector
}
