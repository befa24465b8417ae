package config

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// IndexHome is the on-disk layout of one index. Every distinct root directory
// gets an independently-keyed home under the state dir, so multiple projects
// never collide.
type IndexHome struct {
	Dir string
}

// HomeFor returns the index home for root. root must already be absolute;
// the key is derived from the path, not the directory contents.
func (c *Config) HomeFor(absRoot string) IndexHome {
	sum := sha256.Sum256([]byte(filepath.Clean(absRoot)))
	key := hex.EncodeToString(sum[:])[:16]
	return IndexHome{Dir: filepath.Join(c.StateDir, "indexes", key)}
}

// DBPath is the sqlite database location for this index.
func (h IndexHome) DBPath() string {
	return filepath.Join(h.Dir, "kodex.db")
}

// HashStorePath is the persisted path→hash mapping.
func (h IndexHome) HashStorePath() string {
	return filepath.Join(h.Dir, "hashes.json")
}

// ChunkMapPath is the JSONL chunk map.
func (h IndexHome) ChunkMapPath() string {
	return filepath.Join(h.Dir, "chunks.jsonl")
}

// ManifestPath is the per-run manifest.
func (h IndexHome) ManifestPath() string {
	return filepath.Join(h.Dir, "manifest.json")
}
