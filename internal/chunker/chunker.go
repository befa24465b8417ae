package chunker

import (
	"strings"

	"github.com/kodexlab/kodex/pkg/types"
)

// Preset names a window/overlap pair for the sliding line window.
type Preset struct {
	Window  int // lines per chunk
	Overlap int // lines shared with the previous chunk, always < Window
}

var (
	// codePreset is the default window for source files.
	codePreset = Preset{Window: 40, Overlap: 8}
	// docPreset uses a larger window for documentation-area and markdown
	// files, where prose benefits from more context per chunk.
	docPreset = Preset{Window: 80, Overlap: 16}
)

// minChunkBytes filters near-empty trailing slivers: a candidate chunk whose
// trimmed text is shorter than this is discarded.
const minChunkBytes = 20

// Chunker splits file content into overlapping line-range chunks.
type Chunker struct{}

// New creates a Chunker.
func New() *Chunker {
	return &Chunker{}
}

// presetFor picks the window preset from the file's classification.
func presetFor(area types.Area, language string) Preset {
	if area == types.AreaDocs || language == "markdown" {
		return docPreset
	}
	return codePreset
}

// ChunkFile splits content into an ordered sequence of chunks covering the
// file. A file shorter than one window yields exactly one chunk, or zero if
// it fails the minimum-length filter. Line numbers are 1-based inclusive.
func (c *Chunker) ChunkFile(relPath, content string) []types.Chunk {
	area := ClassifyArea(relPath)
	language := ClassifyLanguage(relPath)
	preset := presetFor(area, language)

	lines := strings.Split(content, "\n")
	// A trailing newline produces one empty final element; drop it so the
	// last chunk's end line matches the real line count.
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var chunks []types.Chunk
	step := preset.Window - preset.Overlap

	for start := 1; start <= len(lines); start += step {
		end := start + preset.Window - 1
		if end > len(lines) {
			end = len(lines)
		}

		text := strings.Join(lines[start-1:end], "\n")
		if len(strings.TrimSpace(text)) >= minChunkBytes {
			chunks = append(chunks, types.Chunk{
				ID:        types.NewChunkID(relPath, start),
				File:      relPath,
				Text:      text,
				Language:  language,
				Area:      area,
				StartLine: start,
				EndLine:   end,
			})
		}

		if end == len(lines) {
			break
		}
	}

	return chunks
}
