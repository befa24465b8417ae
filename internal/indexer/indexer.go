package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kodexlab/kodex/internal/chunker"
	"github.com/kodexlab/kodex/internal/chunkmap"
	"github.com/kodexlab/kodex/internal/config"
	"github.com/kodexlab/kodex/internal/embedder"
	"github.com/kodexlab/kodex/internal/hasher"
	"github.com/kodexlab/kodex/internal/store"
	"github.com/kodexlab/kodex/internal/tracker"
	"github.com/kodexlab/kodex/internal/walker"
	"github.com/kodexlab/kodex/pkg/types"
)

// ErrIndexingInProgress is returned when a run is started while another run
// against the same Indexer is still active.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Config contains pipeline configuration.
type Config struct {
	BatchSize         int      // staged chunks per store flush (default 100)
	EmbeddingRequired bool     // whether an unavailable embedder fails the run
	Include           []string // walker include globs
	Exclude           []string // walker exclude globs
}

// Options are per-run parameters.
type Options struct {
	Force bool // reprocess every present file regardless of recorded hash
}

// Statistics summarizes one indexing run.
type Statistics struct {
	TotalFiles    int
	Processed     int
	Skipped       int
	Failed        int
	Deleted       int
	ChunksCreated int
	ChunksRemoved int
	TotalChunks   int
	Degraded      bool // embeddings were unavailable and zero vectors were stored
	Duration      time.Duration
	ErrorMessages []string
}

// Indexer coordinates the indexing pipeline for one index home.
type Indexer struct {
	store    store.Store
	embedder embedder.Embedder
	chunker  *chunker.Chunker
	walker   *walker.Walker
	home     config.IndexHome
	cfg      Config
	log      *zap.Logger
	lock     runLock
}

// New creates an Indexer writing to the given store and index home.
func New(st store.Store, emb embedder.Embedder, home config.IndexHome, cfg Config, log *zap.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		store:    st,
		embedder: emb,
		chunker:  chunker.New(),
		walker:   walker.New(cfg.Include, cfg.Exclude),
		home:     home,
		cfg:      cfg,
		log:      log,
	}
}

// Run executes one indexing pass over root.
func (idx *Indexer) Run(ctx context.Context, root string, opts Options) (*Statistics, error) {
	if !idx.lock.tryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.release()

	start := time.Now()
	stats := &Statistics{}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", types.ErrTargetMissing, root)
	}

	// Previous state. A malformed hash store or chunk map is fatal rather
	// than silently treated as empty: rebuilding on top of it would orphan
	// every stored chunk.
	prevHashes, err := tracker.Load(idx.home.HashStorePath())
	if err != nil {
		return nil, err
	}
	prevEntries, err := chunkmap.Read(idx.home.ChunkMapPath())
	if err != nil {
		return nil, err
	}

	files, err := idx.walker.Walk(absRoot)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	stats.TotalFiles = len(files)

	current, hashFailures := idx.computeHashes(ctx, files, prevHashes)
	stats.ErrorMessages = append(stats.ErrorMessages, hashFailures...)
	stats.Failed += len(hashFailures)

	delta := tracker.Partition(prevHashes, current, opts.Force)
	stats.Skipped = len(delta.Unchanged)

	idx.log.Info("indexing run",
		zap.String("root", absRoot),
		zap.Int("files", len(files)),
		zap.Int("to_process", len(delta.ToProcess)),
		zap.Int("unchanged", len(delta.Unchanged)),
		zap.Int("deleted", len(delta.Deleted)),
		zap.Bool("force", opts.Force))

	// Entries for unchanged files carry over; changed and deleted files get
	// theirs dropped and (for changed) rebuilt below.
	unchangedSet := make(map[string]bool, len(delta.Unchanged))
	for _, p := range delta.Unchanged {
		unchangedSet[p] = true
	}
	newEntries := make([]types.ChunkMapEntry, 0, len(prevEntries))
	for _, e := range prevEntries {
		if unchangedSet[e.File] {
			newEntries = append(newEntries, e)
		}
	}

	newHashes := tracker.HashStore{}
	for _, p := range delta.Unchanged {
		newHashes[p] = current[p]
	}

	staged := make([]store.Record, 0, idx.cfg.BatchSize)
	flush := func() error {
		if len(staged) == 0 {
			return nil
		}
		if err := idx.store.Upsert(ctx, staged); err != nil {
			return fmt.Errorf("flush %d chunks: %w", len(staged), err)
		}
		staged = staged[:0]
		return nil
	}

	for _, relPath := range delta.ToProcess {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunks, err := idx.processFile(ctx, absRoot, relPath, prevHashes, stats)
		if err != nil {
			if errors.Is(err, embedder.ErrUnavailable) && idx.cfg.EmbeddingRequired {
				return nil, fmt.Errorf("embedding required but unavailable: %w", err)
			}
			// Recoverable per-item: log, skip, and leave the file out of the
			// new hash store so the next run retries it.
			idx.log.Warn("file skipped", zap.String("file", relPath), zap.Error(err))
			stats.Failed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", relPath, err))
			continue
		}

		for _, c := range chunks {
			staged = append(staged, store.Record{
				ID:        c.ID,
				File:      c.File,
				Area:      string(c.Area),
				Language:  c.Language,
				StartLine: c.StartLine,
				EndLine:   c.EndLine,
				Text:      c.Text,
				Vector:    c.Vector,
			})
			newEntries = append(newEntries, types.ChunkMapEntry{
				ChunkID:  c.ID,
				File:     c.File,
				Start:    c.StartLine,
				End:      c.EndLine,
				ParentID: types.NewChunkID(c.File, 1),
				Area:     string(c.Area),
			})
			if len(staged) >= idx.cfg.BatchSize {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}

		newHashes[relPath] = current[relPath]
		stats.Processed++
		stats.ChunksCreated += len(chunks)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	// Deletion sweep: any path in the previous hash store that is absent
	// from the current file set loses its chunks.
	for _, relPath := range delta.Deleted {
		removed, err := idx.store.DeleteByFile(ctx, relPath)
		if err != nil {
			return nil, fmt.Errorf("sweep deleted file %s: %w", relPath, err)
		}
		stats.ChunksRemoved += removed
		stats.Deleted++
	}

	sort.Slice(newEntries, func(i, j int) bool {
		if newEntries[i].File != newEntries[j].File {
			return newEntries[i].File < newEntries[j].File
		}
		return newEntries[i].Start < newEntries[j].Start
	})
	stats.TotalChunks = len(newEntries)

	// Persist state last; everything above is replayable if we die here.
	if err := chunkmap.Write(idx.home.ChunkMapPath(), newEntries); err != nil {
		return nil, fmt.Errorf("persist chunk map: %w", err)
	}
	if err := newHashes.Save(idx.home.HashStorePath()); err != nil {
		return nil, fmt.Errorf("persist hash store: %w", err)
	}

	manifest := &types.Manifest{
		EmbeddingModel: idx.embedder.Model(),
		Dimension:      idx.embedder.Dimension(),
		BuiltAt:        time.Now().UTC(),
		TotalFiles:     stats.TotalFiles,
		ProcessedFiles: stats.Processed,
		SkippedFiles:   stats.Skipped,
		FailedFiles:    stats.Failed,
		DeletedFiles:   stats.Deleted,
		TotalChunks:    stats.TotalChunks,
		Revision:       revisionMarker(absRoot),
	}
	if err := chunkmap.WriteManifest(idx.home.ManifestPath(), manifest); err != nil {
		return nil, fmt.Errorf("persist manifest: %w", err)
	}

	stats.Duration = time.Since(start)
	idx.log.Info("indexing complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("chunks", stats.TotalChunks),
		zap.Bool("degraded", stats.Degraded),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// computeHashes hashes every discovered file concurrently. A file that fails
// to read keeps its previous hash when it has one, so a transient read error
// never masquerades as a deletion.
func (idx *Indexer) computeHashes(ctx context.Context, files []walker.FileInfo, prev tracker.HashStore) (map[string]string, []string) {
	current := make(map[string]string, len(files))
	var failures []string
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, f := range files {
		g.Go(func() error {
			hash, err := hasher.SumFile(f.Path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if prevHash, ok := prev[f.RelPath]; ok {
					current[f.RelPath] = prevHash
				}
				failures = append(failures, fmt.Sprintf("%s: hash: %v", f.RelPath, err))
				return nil
			}
			current[f.RelPath] = hash
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(failures)
	return current, failures
}

// processFile re-chunks and embeds one changed file, replacing its old chunks
// in the store first so stale chunks never accumulate.
func (idx *Indexer) processFile(ctx context.Context, absRoot, relPath string, prev tracker.HashStore, stats *Statistics) ([]types.Chunk, error) {
	content, err := os.ReadFile(filepath.Join(absRoot, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	chunks := idx.chunker.ChunkFile(relPath, string(content))

	// Old chunks go first even when the new content produced none: the file
	// may have shrunk below the minimum-content threshold.
	if _, wasIndexed := prev[relPath]; wasIndexed {
		removed, err := idx.store.DeleteByFile(ctx, relPath)
		if err != nil {
			return nil, fmt.Errorf("delete old chunks: %w", err)
		}
		stats.ChunksRemoved += removed
	}

	if len(chunks) == 0 {
		return nil, nil
	}

	if err := idx.embedChunks(ctx, chunks, stats); err != nil {
		return nil, err
	}
	return chunks, nil
}

// embedChunks fills chunk vectors in bounded batches. On unavailability with
// embeddings optional, vectors stay nil and the run is marked degraded.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []types.Chunk, stats *Statistics) error {
	if stats.Degraded {
		// Embedder already failed this run; don't hammer it per file.
		return nil
	}

	for start := 0; start < len(chunks); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			if errors.Is(err, embedder.ErrUnavailable) {
				if idx.cfg.EmbeddingRequired {
					return err
				}
				stats.Degraded = true
				idx.log.Warn("embeddings unavailable, indexing with zero vectors", zap.Error(err))
				return nil
			}
			return fmt.Errorf("embed: %w", err)
		}

		for i, emb := range resp.Embeddings {
			batch[i].Vector = emb.Vector
		}
	}
	return nil
}
