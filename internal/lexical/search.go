package lexical

import (
	"context"
	"strings"

	"github.com/cosmiclasagnadev/zmem/internal/store"
)

// Hit is a single lexical match with its item identifier and normalized
// score in [0, 1].
type Hit struct {
	ItemID string
	Score  float64
}

// Options narrows a Search call to a workspace and set of scopes.
type Options struct {
	Workspace         string
	Scopes            []string
	Limit             int
	IncludeSuperseded bool
}

// Search runs the strict-AND pass first; if it returns nothing and the
// query has more than one term, it relaxes to an OR match. When
// IncludeSuperseded is set, a LIKE scan over archived items always runs in
// addition and is merged into whichever pass produced the active-item
// results, deduping by item ID and keeping the higher score.
//
// Active-item scores arrive from the store already mapped through
// 1/(1+|bm25|), and archived hits carry the store's fixed 0.35, so lexical
// and vector scores share a comparable [0, 1] range before fusion.
func Search(ctx context.Context, metaStore store.MetadataStore, query string, opts Options) ([]Hit, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	searchOpts := store.SearchOptions{
		Workspace: opts.Workspace,
		Limit:     opts.Limit,
	}
	for _, s := range opts.Scopes {
		searchOpts.Scopes = append(searchOpts.Scopes, scopeOf(s))
	}

	andExpr := strings.Join(tokens, " ")
	hits, err := metaStore.LexicalSearch(ctx, andExpr, searchOpts)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 && len(tokens) > 1 {
		orExpr := strings.Join(tokens, " OR ")
		hits, err = metaStore.LexicalSearch(ctx, orExpr, searchOpts)
		if err != nil {
			return nil, err
		}
	}

	if !opts.IncludeSuperseded {
		return toHits(hits), nil
	}

	archived, err := metaStore.ArchivedKeywordSearch(ctx, tokens[0], searchOpts)
	if err != nil {
		return nil, err
	}
	return mergeHits(toHits(hits), toHits(archived)), nil
}

func toHits(in []store.LexicalHit) []Hit {
	out := make([]Hit, len(in))
	for i, h := range in {
		out[i] = Hit{ItemID: h.ItemID, Score: h.Score}
	}
	return out
}

// mergeHits combines primary and fallback hit sets, deduping by item ID
// and keeping the higher score when an ID appears in both.
func mergeHits(primary, fallback []Hit) []Hit {
	if len(fallback) == 0 {
		return primary
	}
	out := make([]Hit, len(primary))
	copy(out, primary)
	byID := make(map[string]int, len(out))
	for i, h := range out {
		byID[h.ItemID] = i
	}
	for _, h := range fallback {
		if i, ok := byID[h.ItemID]; ok {
			if h.Score > out[i].Score {
				out[i].Score = h.Score
			}
			continue
		}
		byID[h.ItemID] = len(out)
		out = append(out, h)
	}
	return out
}
