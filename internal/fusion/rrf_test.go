package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseTopResultNormalizesToOne(t *testing.T) {
	lex := []Candidate{{ID: "a"}, {ID: "b"}}
	vec := []Candidate{{ID: "b"}, {ID: "c"}}

	results := Fuse(lex, vec, DefaultOptions())
	require.NotEmpty(t, results)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestFuseHybridSourceWhenInBothLists(t *testing.T) {
	lex := []Candidate{{ID: "a"}}
	vec := []Candidate{{ID: "a"}}

	results := Fuse(lex, vec, DefaultOptions())
	require.Len(t, results, 1)
	assert.Equal(t, "hybrid", results[0].Source)
}

func TestFuseLexicalOnlySourceTag(t *testing.T) {
	lex := []Candidate{{ID: "a"}}
	results := Fuse(lex, nil, DefaultOptions())
	require.Len(t, results, 1)
	assert.Equal(t, "lex", results[0].Source)
}

func TestFuseVectorOnlySourceTag(t *testing.T) {
	vec := []Candidate{{ID: "a"}}
	results := Fuse(nil, vec, DefaultOptions())
	require.Len(t, results, 1)
	assert.Equal(t, "vec", results[0].Source)
}

func TestFuseFirstListWeightFavorsLexicalAtSameRank(t *testing.T) {
	lex := []Candidate{{ID: "a"}}
	vec := []Candidate{{ID: "b"}}

	results := Fuse(lex, vec, DefaultOptions())
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID, "lexical's higher weight should rank it first at equal rank")
}

func TestFuseDropsBelowMinScore(t *testing.T) {
	opts := DefaultOptions()
	opts.MinScore = 0.99

	lex := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	results := Fuse(lex, nil, opts)
	// only the top-scoring id normalizes to 1.0 and survives a near-1 threshold
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestFuseRespectsCandidateLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.CandidateLimit = 1

	lex := []Candidate{{ID: "a"}, {ID: "b"}}
	results := Fuse(lex, nil, opts)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestFusePreservesPayload(t *testing.T) {
	lex := []Candidate{{ID: "a", Payload: "payload-a"}}
	results := Fuse(lex, nil, DefaultOptions())
	require.Len(t, results, 1)
	assert.Equal(t, "payload-a", results[0].Payload)
}

func TestFuseEmptyListsReturnsEmpty(t *testing.T) {
	results := Fuse(nil, nil, DefaultOptions())
	assert.Empty(t, results)
}
