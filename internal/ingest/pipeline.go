package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/store"
	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

const (
	defaultParseConcurrency = 10
	defaultSaveConcurrency  = 8
)

// Options configures one ingestion run.
type Options struct {
	Workspace       string
	RootPath        string
	GlobPatterns    []string
	ExcludePatterns []string
}

// Result summarizes one ingestion run.
type Result struct {
	Scanned       int
	Inserted      int
	Updated       int
	Unchanged     int
	Removed       int
	ChunksCreated int
	Errors        int
	Duration      time.Duration
}

// Pipeline discovers, parses, and upserts documents into an Engine.
type Pipeline struct {
	engine *core.Engine
	meta   store.MetadataStore

	parseConcurrency int
	saveConcurrency  int
}

// NewPipeline builds a Pipeline over engine, using meta directly for the
// change-detection and cleanup queries the engine's surface doesn't expose.
func NewPipeline(engine *core.Engine, meta store.MetadataStore) *Pipeline {
	return &Pipeline{
		engine:           engine,
		meta:             meta,
		parseConcurrency: defaultParseConcurrency,
		saveConcurrency:  defaultSaveConcurrency,
	}
}

// Run discovers files under opts.RootPath, parses and upserts changed ones,
// and marks vanished sources deleted. Per-file and per-document errors are
// counted rather than aborting the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	refs, err := Discover(opts.RootPath)
	if err != nil {
		return nil, zerrors.New(zerrors.Validation, "discover files under "+opts.RootPath, err)
	}
	refs = filterPatterns(refs, opts.GlobPatterns, opts.ExcludePatterns)

	result := &Result{Scanned: len(refs)}
	var mu sync.Mutex

	parsed := make([]*ParsedDocument, len(refs))
	pg, _ := errgroup.WithContext(ctx)
	pg.SetLimit(p.parseConcurrency)
	for i, ref := range refs {
		i, ref := i, ref
		pg.Go(func() error {
			raw, err := os.ReadFile(ref.AbsPath)
			if err != nil {
				mu.Lock()
				result.Errors++
				mu.Unlock()
				return nil
			}
			doc, err := ParseDocument(ref.RelPath, raw)
			if err != nil {
				mu.Lock()
				result.Errors++
				mu.Unlock()
				return nil
			}
			parsed[i] = doc
			return nil
		})
	}
	_ = pg.Wait()

	existing, err := p.meta.ListActiveSourcesByWorkspace(ctx, opts.Workspace)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}

	observed := make(map[string]bool)
	var toSave []*ParsedDocument
	for _, doc := range parsed {
		if doc == nil {
			continue
		}
		observed[doc.Source] = true
		if hash, ok := existing[doc.Source]; ok && hash == doc.ContentHash {
			result.Unchanged++
			continue
		}
		toSave = append(toSave, doc)
	}

	sg, _ := errgroup.WithContext(ctx)
	sg.SetLimit(p.saveConcurrency)
	for _, doc := range toSave {
		doc := doc
		sg.Go(func() error {
			item := &memory.Item{
				Type:          doc.Type,
				Title:         doc.Title,
				Content:       doc.Content,
				Source:        doc.Source,
				Scope:         memory.ScopeWorkspace,
				Workspace:     opts.Workspace,
				Tags:          doc.Tags,
				Importance:    doc.Importance,
				ImportanceSet: true,
				ContentHash:   doc.ContentHash,
			}

			isUpdate := false
			if prior, err := p.meta.GetActiveBySource(ctx, opts.Workspace, doc.Source); err == nil && prior != nil {
				item.SupersedesID = prior.ID
				isUpdate = true
			}

			saveRes, err := p.engine.Save(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors++
				return nil
			}
			if isUpdate {
				result.Updated++
			} else {
				result.Inserted++
			}
			if chunks, err := p.meta.GetChunksByMemory(ctx, saveRes.ID); err == nil {
				result.ChunksCreated += len(chunks)
			}
			return nil
		})
	}
	_ = sg.Wait()

	removed, err := p.cleanup(ctx, opts.Workspace, observed)
	if err != nil {
		return nil, err
	}
	result.Removed = removed

	result.Duration = time.Since(start)
	return result, nil
}

// cleanup marks any active item in workspace whose source was not observed
// in this run as deleted.
func (p *Pipeline) cleanup(ctx context.Context, workspace string, observed map[string]bool) (int, error) {
	existing, err := p.meta.ListActiveSourcesByWorkspace(ctx, workspace)
	if err != nil {
		return 0, zerrors.Wrap(zerrors.Database, err)
	}

	removed := 0
	for source := range existing {
		if observed[source] {
			continue
		}
		item, err := p.meta.GetActiveBySource(ctx, workspace, source)
		if err != nil || item == nil {
			continue
		}
		if ok, err := p.engine.Delete(ctx, item.ID); err == nil && ok {
			removed++
		}
	}
	return removed, nil
}

// Reindex delegates to the engine's reindex, which rebuilds chunks,
// embeddings, and vectors for every active item in workspace without
// rediscovering files.
func (p *Pipeline) Reindex(ctx context.Context, workspace string) (*core.ReindexResult, error) {
	return p.engine.Reindex(ctx, workspace)
}

func filterPatterns(refs []FileRef, include, exclude []string) []FileRef {
	if len(include) == 0 && len(exclude) == 0 {
		return refs
	}
	var out []FileRef
	for _, ref := range refs {
		if len(include) > 0 && !matchesAny(ref.RelPath, include) {
			continue
		}
		if matchesAny(ref.RelPath, exclude) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func matchesAny(relPath string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, err := filepath.Match(pat, relPath); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pat, filepath.Base(relPath)); err == nil && ok {
			return true
		}
	}
	return false
}
