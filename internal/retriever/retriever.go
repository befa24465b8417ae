package retriever

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kodexlab/kodex/internal/chunkmap"
	"github.com/kodexlab/kodex/internal/config"
	"github.com/kodexlab/kodex/internal/embedder"
	"github.com/kodexlab/kodex/internal/store"
	"github.com/kodexlab/kodex/pkg/types"
)

// Config holds scoring weights and result shaping settings.
type Config struct {
	VectorWeight    float64 // weight of the vector candidate bucket
	LexicalWeight   float64 // weight of the lexical candidate bucket
	DefaultLimit    int
	MaxLimit        int
	SnippetsPerFile int
	CacheSize       int
}

// Request contains parameters for one query.
type Request struct {
	Query    string
	K        int        // number of result files
	Area     types.Area // optional exact-match filter
	MinScore float64    // file-level threshold, boundary inclusive
	Compact  bool
}

// Response contains ranked result files and query metadata.
type Response struct {
	Results  []types.FileResult        `json:"results,omitempty"`
	Compact  []types.CompactFileResult `json:"compact,omitempty"`
	Degraded bool                      `json:"degraded"` // lexical-only fallback was used
	CacheHit bool                      `json:"cache_hit"`
	Duration time.Duration             `json:"duration"`

	VectorCandidates  int `json:"vector_candidates"`
	LexicalCandidates int `json:"lexical_candidates"`
}

// Retriever answers queries against one index home.
type Retriever struct {
	store    store.Store
	embedder embedder.Embedder
	home     config.IndexHome
	cfg      Config
	log      *zap.Logger

	cache *lru.Cache[[32]byte, *Response]

	mu       sync.Mutex
	resolver *chunkmap.Resolver // lazily loaded, dropped on InvalidateCache
}

// New creates a Retriever reading from the given store and index home.
func New(st store.Store, emb embedder.Embedder, home config.IndexHome, cfg Config, log *zap.Logger) *Retriever {
	if cfg.VectorWeight == 0 && cfg.LexicalWeight == 0 {
		cfg.VectorWeight, cfg.LexicalWeight = 0.7, 0.3
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.SnippetsPerFile <= 0 {
		cfg.SnippetsPerFile = 3
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}

	cache, err := lru.New[[32]byte, *Response](cfg.CacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}

	return &Retriever{
		store:    st,
		embedder: emb,
		home:     home,
		cfg:      cfg,
		log:      log,
		cache:    cache,
	}
}

// Search executes one hybrid query.
func (r *Retriever) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, types.ErrEmptyQuery
	}
	if req.K <= 0 {
		req.K = r.cfg.DefaultLimit
	}
	if req.K > r.cfg.MaxLimit {
		req.K = r.cfg.MaxLimit
	}
	if req.Area != "" && !req.Area.Valid() {
		return nil, fmt.Errorf("invalid area %q", req.Area)
	}

	// Distinguish "never indexed" from an empty result set.
	if _, err := chunkmap.ReadManifest(r.home.ManifestPath()); err != nil {
		return nil, err
	}

	key := requestKey(req)
	if cached, ok := r.cache.Get(key); ok {
		resp := copyResponse(cached)
		resp.CacheHit = true
		resp.Duration = time.Since(start)
		return resp, nil
	}

	resp, err := r.search(ctx, req)
	if err != nil {
		return nil, err
	}
	resp.Duration = time.Since(start)

	r.cache.Add(key, copyResponse(resp))
	return resp, nil
}

func (r *Retriever) search(ctx context.Context, req Request) (*Response, error) {
	resp := &Response{}
	poolSize := req.K * 2

	// Vector bucket. An unavailable embedder degrades to lexical-only; any
	// other failure is a real error.
	var vectorHits []store.Result
	queryEmb, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	switch {
	case err == nil:
		vectorHits, err = r.store.Query(ctx, queryEmb.Vector, poolSize)
		if err != nil {
			return nil, fmt.Errorf("vector query: %w", err)
		}
	case errors.Is(err, embedder.ErrUnavailable):
		resp.Degraded = true
		r.log.Warn("embedder unavailable, falling back to lexical-only scoring", zap.Error(err))
	default:
		return nil, fmt.Errorf("embed query: %w", err)
	}
	resp.VectorCandidates = len(vectorHits)

	// Lexical bucket over the full record list.
	records, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	byID := make(map[string]store.Record, len(records))
	texts := make(map[string]string, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
		texts[rec.ID] = rec.Text
	}
	lexicalHits := topLexical(req.Query, texts, poolSize)
	resp.LexicalCandidates = len(lexicalHits)

	// Weighted additive merge per chunk id. A chunk present in only one
	// bucket contributes only that bucket's weighted score.
	merged := make(map[string]float64)
	for _, hit := range vectorHits {
		score := hit.Score
		if score < 0 {
			score = 0
		}
		merged[hit.ID] += r.cfg.VectorWeight * score
	}
	for _, hit := range lexicalHits {
		merged[hit.id] += r.cfg.LexicalWeight * hit.score
	}

	// Vector results may carry records the full listing didn't (remote
	// backends have one source of truth, so this is belt and braces).
	for _, hit := range vectorHits {
		if _, ok := byID[hit.ID]; !ok {
			byID[hit.ID] = hit.Record
		}
	}

	// Area filter, applied once, after merging.
	if req.Area != "" {
		for id := range merged {
			if types.Area(byID[id].Area) != req.Area {
				delete(merged, id)
			}
		}
	}

	files := r.groupByFile(merged, byID)

	sort.Slice(files, func(i, j int) bool {
		if files[i].Score != files[j].Score {
			return files[i].Score > files[j].Score
		}
		return files[i].Path < files[j].Path
	})

	ranked := files[:0]
	for _, f := range files {
		if f.Score >= req.MinScore {
			ranked = append(ranked, f)
		}
	}
	if req.K < len(ranked) {
		ranked = ranked[:req.K]
	}

	if req.Compact {
		resp.Compact = make([]types.CompactFileResult, len(ranked))
		for i, f := range ranked {
			resp.Compact[i] = f.Compact()
		}
	} else {
		resp.Results = ranked
	}
	return resp, nil
}

// groupByFile folds scored chunks into per-file results: a file scores as
// its best chunk and keeps its top snippets.
func (r *Retriever) groupByFile(merged map[string]float64, byID map[string]store.Record) []types.FileResult {
	type fileAgg struct {
		area     types.Area
		score    float64
		snippets []types.Snippet
	}
	byFile := make(map[string]*fileAgg)

	for id, score := range merged {
		rec := byID[id]
		if rec.File == "" {
			continue
		}

		startLine, endLine := rec.StartLine, rec.EndLine
		if startLine == 0 || endLine == 0 {
			// Vector-store metadata is partial; recover from the chunk map.
			if entry, ok := r.chunkResolver().Resolve(id, rec.File, rec.StartLine); ok {
				startLine, endLine = entry.Start, entry.End
			}
		}

		agg, ok := byFile[rec.File]
		if !ok {
			agg = &fileAgg{area: types.Area(rec.Area)}
			byFile[rec.File] = agg
		}
		if score > agg.score {
			agg.score = score
		}
		agg.snippets = append(agg.snippets, types.Snippet{
			ChunkID:   id,
			StartLine: startLine,
			EndLine:   endLine,
			Score:     score,
		})
	}

	results := make([]types.FileResult, 0, len(byFile))
	for path, agg := range byFile {
		sort.Slice(agg.snippets, func(i, j int) bool {
			if agg.snippets[i].Score != agg.snippets[j].Score {
				return agg.snippets[i].Score > agg.snippets[j].Score
			}
			return agg.snippets[i].StartLine < agg.snippets[j].StartLine
		})
		if len(agg.snippets) > r.cfg.SnippetsPerFile {
			agg.snippets = agg.snippets[:r.cfg.SnippetsPerFile]
		}
		results = append(results, types.FileResult{
			Path:     path,
			Area:     agg.area,
			Score:    agg.score,
			Snippets: agg.snippets,
		})
	}
	return results
}

// chunkResolver lazily loads the chunk map. A load failure yields an empty
// resolver; recovery then simply finds nothing and snippets keep whatever
// metadata the store had.
func (r *Retriever) chunkResolver() *chunkmap.Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolver == nil {
		entries, err := chunkmap.Read(r.home.ChunkMapPath())
		if err != nil {
			r.log.Warn("chunk map unreadable, line-range recovery disabled", zap.Error(err))
		}
		r.resolver = chunkmap.NewResolver(entries, r.log)
	}
	return r.resolver
}

// InvalidateCache drops cached query responses and the loaded chunk map.
// Called after a reindex.
func (r *Retriever) InvalidateCache() {
	r.cache.Purge()
	r.mu.Lock()
	r.resolver = nil
	r.mu.Unlock()
}

// requestKey computes a deterministic cache key for a request.
func requestKey(req Request) [32]byte {
	var b strings.Builder
	b.WriteString(req.Query)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d|%s|%.4f|%t", req.K, req.Area, req.MinScore, req.Compact)
	return sha256.Sum256([]byte(b.String()))
}

// copyResponse clones a response so cached entries are never aliased by
// callers.
func copyResponse(src *Response) *Response {
	dst := &Response{
		Degraded:          src.Degraded,
		Duration:          src.Duration,
		VectorCandidates:  src.VectorCandidates,
		LexicalCandidates: src.LexicalCandidates,
	}
	if src.Results != nil {
		dst.Results = make([]types.FileResult, len(src.Results))
		for i, f := range src.Results {
			snippets := make([]types.Snippet, len(f.Snippets))
			copy(snippets, f.Snippets)
			f.Snippets = snippets
			dst.Results[i] = f
		}
	}
	if src.Compact != nil {
		dst.Compact = make([]types.CompactFileResult, len(src.Compact))
		for i, f := range src.Compact {
			ranges := make([]string, len(f.Ranges))
			copy(ranges, f.Ranges)
			f.Ranges = ranges
			dst.Compact[i] = f
		}
	}
	return dst
}
