// Package tracker persists per-file content hashes across indexing runs and
// computes the delta set (unchanged / to-process / deleted) that drives
// incremental indexing.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// HashStore maps relative file path to hex content digest. It is the durable
// state that makes change detection possible across runs.
type HashStore map[string]string

// Load reads the hash store at path. A missing file yields an empty store
// (first run); a malformed file is a fatal parse error, never silently
// treated as empty.
func Load(path string) (HashStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return HashStore{}, nil
		}
		return nil, fmt.Errorf("read hash store: %w", err)
	}

	store := HashStore{}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("malformed hash store %s: %w", path, err)
	}
	return store, nil
}

// Save writes the store atomically: the previous file is only replaced once
// the new content is fully on disk.
func (h HashStore) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delta partitions the current file set against the previous run. The three
// sets are disjoint; Deleted is keyed off absence from the current set and is
// unaffected by force mode.
type Delta struct {
	Unchanged []string
	ToProcess []string
	Deleted   []string
}

// Partition compares the previous hash store with freshly computed hashes.
// Force mode moves every currently-present file into ToProcess; deletion
// detection still runs normally.
func Partition(prev HashStore, current map[string]string, force bool) Delta {
	var d Delta

	for path, hash := range current {
		if !force {
			if prevHash, ok := prev[path]; ok && prevHash == hash {
				d.Unchanged = append(d.Unchanged, path)
				continue
			}
		}
		d.ToProcess = append(d.ToProcess, path)
	}

	for path := range prev {
		if _, ok := current[path]; !ok {
			d.Deleted = append(d.Deleted, path)
		}
	}

	sort.Strings(d.Unchanged)
	sort.Strings(d.ToProcess)
	sort.Strings(d.Deleted)
	return d
}
