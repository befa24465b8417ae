package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kodexlab/kodex/internal/config"
	"github.com/kodexlab/kodex/internal/embedder"
	"github.com/kodexlab/kodex/internal/indexer"
	"github.com/kodexlab/kodex/internal/mcp"
	"github.com/kodexlab/kodex/internal/retriever"
	"github.com/kodexlab/kodex/internal/store"
	"github.com/kodexlab/kodex/internal/watcher"
	"github.com/kodexlab/kodex/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("kodex\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol; all logging goes to stderr.
	log := newLogger()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(os.Getenv("KODEX_CONFIG"))
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	cmd := "mcp"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "mcp":
		runMCP(cfg, log)
	case "index":
		runIndex(cfg, log, args)
	case "query":
		runQuery(cfg, log, args)
	case "watch":
		runWatch(cfg, log, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprintln(os.Stderr, "usage: kodex [mcp|index|query|watch] ...")
		os.Exit(2)
	}
}

func newLogger() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

// runMCP serves the MCP protocol on stdio until interrupted.
func runMCP(cfg *config.Config, log *zap.Logger) {
	srv, err := mcp.NewServer(cfg, log)
	if err != nil {
		log.Fatal("failed to create MCP server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("MCP server ready, listening on stdio", zap.String("version", version))
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}
}

// components holds everything needed to run a pipeline against one root.
type components struct {
	home      config.IndexHome
	store     store.Store
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
}

func buildComponents(ctx context.Context, cfg *config.Config, log *zap.Logger, root string) (*components, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		if !errors.Is(err, embedder.ErrUnavailable) {
			return nil, err
		}
		log.Warn("embedding provider unavailable", zap.Error(err))
		emb = embedder.NewUnavailable(cfg.Embedding.Provider, cfg.Embedding.Model, err.Error())
	}

	home := cfg.HomeFor(absRoot)
	if err := os.MkdirAll(home.Dir, 0o755); err != nil {
		return nil, err
	}
	st, err := store.New(ctx, cfg.Store, home.DBPath(), emb.Dimension())
	if err != nil {
		return nil, err
	}

	return &components{
		home:  home,
		store: st,
		indexer: indexer.New(st, emb, home, indexer.Config{
			BatchSize:         cfg.Index.BatchSize,
			EmbeddingRequired: cfg.Embedding.IsRequired(),
			Include:           cfg.Index.Include,
			Exclude:           cfg.Index.Exclude,
		}, log),
		retriever: retriever.New(st, emb, home, retriever.Config{
			VectorWeight:    cfg.Search.VectorWeight,
			LexicalWeight:   cfg.Search.LexicalWeight,
			DefaultLimit:    cfg.Search.DefaultLimit,
			MaxLimit:        cfg.Search.MaxLimit,
			SnippetsPerFile: cfg.Search.SnippetsPerFile,
			CacheSize:       cfg.Search.CacheSize,
		}, log),
	}, nil
}

// runIndex performs one indexing pass and prints a summary.
func runIndex(cfg *config.Config, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	force := fs.Bool("force", false, "reprocess every file regardless of recorded hashes")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kodex index [--force] <path>")
		os.Exit(2)
	}
	root := fs.Arg(0)

	ctx := context.Background()
	c, err := buildComponents(ctx, cfg, log, root)
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer func() { _ = c.store.Close() }()

	stats, err := c.indexer.Run(ctx, root, indexer.Options{Force: *force})
	if err != nil {
		log.Fatal("indexing failed", zap.Error(err))
	}

	fmt.Printf("indexed %s\n", root)
	fmt.Printf("  files: %d total, %d processed, %d skipped, %d failed, %d deleted\n",
		stats.TotalFiles, stats.Processed, stats.Skipped, stats.Failed, stats.Deleted)
	fmt.Printf("  chunks: %d created, %d removed, %d total\n",
		stats.ChunksCreated, stats.ChunksRemoved, stats.TotalChunks)
	fmt.Printf("  duration: %s\n", stats.Duration.Round(time.Millisecond))
	if stats.Degraded {
		fmt.Println("  note: embeddings were unavailable, chunks stored without vectors")
	}
	for _, msg := range stats.ErrorMessages {
		fmt.Printf("  error: %s\n", msg)
	}
}

// runQuery executes one search and prints ranked files with snippets.
func runQuery(cfg *config.Config, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	limit := fs.Int("limit", 0, "maximum result files")
	area := fs.String("area", "", "restrict to one area (backend, frontend, infra, docs, other)")
	minScore := fs.Float64("min-score", 0, "minimum file score, boundary inclusive")
	compact := fs.Bool("compact", false, "print only paths and line ranges")
	_ = fs.Parse(args)
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: kodex query [flags] <path> <query...>")
		os.Exit(2)
	}
	root := fs.Arg(0)
	query := ""
	for i := 1; i < fs.NArg(); i++ {
		if query != "" {
			query += " "
		}
		query += fs.Arg(i)
	}

	ctx := context.Background()
	c, err := buildComponents(ctx, cfg, log, root)
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer func() { _ = c.store.Close() }()

	resp, err := c.retriever.Search(ctx, retriever.Request{
		Query:    query,
		K:        *limit,
		Area:     types.Area(*area),
		MinScore: *minScore,
		Compact:  *compact,
	})
	if errors.Is(err, types.ErrNotIndexed) {
		log.Fatal("root not indexed, run kodex index first", zap.String("root", root))
	}
	if err != nil {
		log.Fatal("search failed", zap.Error(err))
	}

	if resp.Degraded {
		fmt.Println("(embeddings unavailable, lexical-only results)")
	}
	if *compact {
		for _, f := range resp.Compact {
			fmt.Printf("%s  %v\n", f.Path, f.Ranges)
		}
		return
	}
	for _, f := range resp.Results {
		fmt.Printf("%.4f  %s  [%s]\n", f.Score, f.Path, f.Area)
		for _, sn := range f.Snippets {
			fmt.Printf("        lines %s (%.4f)\n", sn.Range(), sn.Score)
		}
	}
}

// runWatch indexes once, then keeps the index current until interrupted.
func runWatch(cfg *config.Config, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kodex watch <path>")
		os.Exit(2)
	}
	root := fs.Arg(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg, log, root)
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer func() { _ = c.store.Close() }()

	if _, err := c.indexer.Run(ctx, root, indexer.Options{}); err != nil {
		log.Fatal("initial indexing failed", zap.Error(err))
	}
	c.retriever.InvalidateCache()

	reindex := func(ctx context.Context, root string) {
		if _, err := c.indexer.Run(ctx, root, indexer.Options{}); err != nil {
			if errors.Is(err, indexer.ErrIndexingInProgress) {
				return
			}
			log.Error("reindex failed", zap.Error(err))
			return
		}
		c.retriever.InvalidateCache()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		log.Fatal("failed to resolve root", zap.Error(err))
	}
	w := watcher.New(absRoot, reindex, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, log)
	if err := w.Start(ctx); err != nil {
		log.Fatal("failed to start watcher", zap.Error(err))
	}
	defer w.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("shutting down", zap.String("signal", sig.String()))
}
