package chunkmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kodexlab/kodex/pkg/types"
)

// WriteManifest overwrites the manifest at path atomically.
func WriteManifest(path string, m *types.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadManifest loads the manifest at path. A missing manifest means the index
// has never been built and is reported as types.ErrNotIndexed.
func ReadManifest(path string) (*types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrNotIndexed
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed manifest %s: %w", path, err)
	}
	return &m, nil
}
