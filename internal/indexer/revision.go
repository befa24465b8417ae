package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// revisionMarker returns a content-addressable marker for the manifest: the
// current git commit id when the root is a git checkout, otherwise a
// synthesized identifier unique to this run.
func revisionMarker(absRoot string) string {
	head, err := os.ReadFile(filepath.Join(absRoot, ".git", "HEAD"))
	if err != nil {
		return "run-" + uuid.NewString()
	}

	ref := strings.TrimSpace(string(head))
	if !strings.HasPrefix(ref, "ref: ") {
		// Detached HEAD holds the commit id directly.
		return ref
	}

	refPath := strings.TrimPrefix(ref, "ref: ")
	commit, err := os.ReadFile(filepath.Join(absRoot, ".git", filepath.FromSlash(refPath)))
	if err != nil {
		// Possibly a packed ref; not worth parsing packed-refs for a marker.
		return "run-" + uuid.NewString()
	}
	return strings.TrimSpace(string(commit))
}
