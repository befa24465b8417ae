// Package chunkmap persists the chunk map (one JSON object per line, fully
// rewritten each run) and the run manifest. The chunk map recovers line-range
// metadata at query time even when the vector store's metadata is partial.
package chunkmap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kodexlab/kodex/pkg/types"
)

// Write rewrites the chunk map at path with the given entries, atomically.
func Write(path string, entries []types.ChunkMapEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read loads every entry from the chunk map at path. A missing file yields
// nil entries; a malformed line is a fatal parse error.
func Read(path string) ([]types.ChunkMapEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chunk map: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []types.ChunkMapEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e types.ChunkMapEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("malformed chunk map %s line %d: %w", path, lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Resolver recovers chunk line ranges. Lookups are keyed by chunk id first
// (ids are globally unique), then by exact file+start key, then by suffix
// path matching for indexes whose root directory has been relocated.
type Resolver struct {
	byID  map[string]types.ChunkMapEntry
	byKey map[string]types.ChunkMapEntry // "file:start"
	all   []types.ChunkMapEntry
	log   *zap.Logger
}

// NewResolver builds a resolver over the given entries.
func NewResolver(entries []types.ChunkMapEntry, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		byID:  make(map[string]types.ChunkMapEntry, len(entries)),
		byKey: make(map[string]types.ChunkMapEntry, len(entries)),
		all:   entries,
		log:   log,
	}
	for _, e := range entries {
		r.byID[e.ChunkID] = e
		r.byKey[fmt.Sprintf("%s:%d", e.File, e.Start)] = e
	}
	return r
}

// Len returns the number of mapped chunks.
func (r *Resolver) Len() int {
	return len(r.all)
}

// Resolve looks up the entry for a chunk. file and startLine are optional
// hints used for the fallback keys; the suffix fallback can pick a wrong
// range when multiple files share a suffix, so it logs when it fires.
func (r *Resolver) Resolve(chunkID, file string, startLine int) (types.ChunkMapEntry, bool) {
	if e, ok := r.byID[chunkID]; ok {
		return e, true
	}
	if file != "" {
		if e, ok := r.byKey[fmt.Sprintf("%s:%d", file, startLine)]; ok {
			return e, true
		}
		for _, e := range r.all {
			if e.Start == startLine && (strings.HasSuffix(e.File, file) || strings.HasSuffix(file, e.File)) {
				r.log.Warn("chunk resolved by path suffix, range may be ambiguous",
					zap.String("chunk_id", chunkID),
					zap.String("file", file),
					zap.String("matched", e.File))
				return e, true
			}
		}
	}
	return types.ChunkMapEntry{}, false
}
