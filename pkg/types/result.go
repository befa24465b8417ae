package types

import "fmt"

// Snippet is one contributing chunk of a result file, reported with its line
// range and individual score.
type Snippet struct {
	ChunkID   string  `json:"chunk_id"`
	StartLine int     `json:"start"`
	EndLine   int     `json:"end"`
	Score     float64 `json:"score"`
}

// Range renders the snippet's line range as "start-end".
func (s Snippet) Range() string {
	return fmt.Sprintf("%d-%d", s.StartLine, s.EndLine)
}

// FileResult is one ranked result file. Its score is the maximum score among
// its contributing chunks, so a single highly relevant chunk surfaces the
// whole file.
type FileResult struct {
	Path     string    `json:"path"`
	Area     Area      `json:"area"`
	Score    float64   `json:"score"`
	Snippets []Snippet `json:"snippets"`
}

// CompactFileResult is the trimmed projection of a FileResult: path plus
// snippet line-range strings.
type CompactFileResult struct {
	Path   string   `json:"path"`
	Ranges []string `json:"ranges"`
}

// Compact converts a full result to its compact projection.
func (r FileResult) Compact() CompactFileResult {
	ranges := make([]string, 0, len(r.Snippets))
	for _, s := range r.Snippets {
		ranges = append(ranges, s.Range())
	}
	return CompactFileResult{Path: r.Path, Ranges: ranges}
}
