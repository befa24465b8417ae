// Package mcp exposes indexing and retrieval over the Model Context Protocol
// on stdio. Each indexed root gets its own session: an index home, a store,
// an indexer, and a retriever, built lazily on first use and shared by every
// tool call against that root.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kodexlab/kodex/internal/config"
	"github.com/kodexlab/kodex/internal/embedder"
	"github.com/kodexlab/kodex/internal/indexer"
	"github.com/kodexlab/kodex/internal/retriever"
	"github.com/kodexlab/kodex/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "kodex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	embedder embedder.Embedder
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session // keyed by absolute root path
}

// session bundles the per-root components sharing one store handle.
type session struct {
	home      config.IndexHome
	store     store.Store
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
}

// NewServer creates an MCP server instance from configuration.
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// A provider that cannot be constructed (a missing API key, usually) is
	// kept as an always-unavailable embedder rather than a startup failure:
	// lexical-only search still works and indexing fails only when
	// embeddings are required.
	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		if !errors.Is(err, embedder.ErrUnavailable) {
			return nil, fmt.Errorf("initialize embedder: %w", err)
		}
		log.Warn("embedding provider unavailable, serving lexical-only", zap.Error(err))
		emb = embedder.NewUnavailable(cfg.Embedding.Provider, cfg.Embedding.Model, err.Error())
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		embedder: emb,
		log:      log,
		sessions: make(map[string]*session),
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.closeSessions()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// sessionFor returns the session for an absolute root, building it on first
// use.
func (s *Server) sessionFor(ctx context.Context, absRoot string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[absRoot]; ok {
		return sess, nil
	}

	home := s.cfg.HomeFor(absRoot)
	if err := os.MkdirAll(home.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index home: %w", err)
	}

	st, err := store.New(ctx, s.cfg.Store, home.DBPath(), s.embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sess := &session{
		home:  home,
		store: st,
		indexer: indexer.New(st, s.embedder, home, indexer.Config{
			BatchSize:         s.cfg.Index.BatchSize,
			EmbeddingRequired: s.cfg.Embedding.IsRequired(),
			Include:           s.cfg.Index.Include,
			Exclude:           s.cfg.Index.Exclude,
		}, s.log),
		retriever: retriever.New(st, s.embedder, home, retriever.Config{
			VectorWeight:    s.cfg.Search.VectorWeight,
			LexicalWeight:   s.cfg.Search.LexicalWeight,
			DefaultLimit:    s.cfg.Search.DefaultLimit,
			MaxLimit:        s.cfg.Search.MaxLimit,
			SnippetsPerFile: s.cfg.Search.SnippetsPerFile,
			CacheSize:       s.cfg.Search.CacheSize,
		}, s.log),
	}
	s.sessions[absRoot] = sess
	return sess, nil
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for root, sess := range s.sessions {
		if err := sess.store.Close(); err != nil {
			s.log.Warn("failed to close store", zap.String("root", root), zap.Error(err))
		}
		delete(s.sessions, root)
	}
	_ = s.embedder.Close()
}

// resolveRoot validates a path argument and returns its absolute form.
func resolveRoot(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	if !filepath.IsAbs(path) {
		return "", errors.New("path must be absolute")
	}
	abs := filepath.Clean(path)
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", abs)
	}
	return abs, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
