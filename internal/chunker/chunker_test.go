package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexlab/kodex/pkg/types"
)

// numberedLines builds n lines long enough to pass the minimum-length filter.
func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %03d with enough content to count\n", i)
	}
	return b.String()
}

func TestChunkFileSingleWindow(t *testing.T) {
	c := New()
	chunks := c.ChunkFile("internal/service.go", numberedLines(10))

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 10, chunks[0].EndLine)
	assert.Equal(t, "go", chunks[0].Language)
	assert.Equal(t, types.AreaBackend, chunks[0].Area)
	assert.Equal(t, types.NewChunkID("internal/service.go", 1), chunks[0].ID)
}

func TestChunkFileSlidingWindow(t *testing.T) {
	c := New()
	chunks := c.ChunkFile("internal/service.go", numberedLines(100))

	// Window 40, overlap 8: starts at 1, 33, 65 and the last chunk is
	// clamped to the final line.
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 40, chunks[0].EndLine)
	assert.Equal(t, 33, chunks[1].StartLine)
	assert.Equal(t, 72, chunks[1].EndLine)
	assert.Equal(t, 65, chunks[2].StartLine)
	assert.Equal(t, 100, chunks[2].EndLine)

	// Consecutive chunks share the overlap lines.
	first := strings.Split(chunks[0].Text, "\n")
	second := strings.Split(chunks[1].Text, "\n")
	assert.Equal(t, first[32:], second[:8])
}

func TestChunkFileDocPreset(t *testing.T) {
	c := New()
	chunks := c.ChunkFile("docs/guide.md", numberedLines(100))

	// Window 80, overlap 16: starts at 1 and 65.
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 80, chunks[0].EndLine)
	assert.Equal(t, 65, chunks[1].StartLine)
	assert.Equal(t, 100, chunks[1].EndLine)
	assert.Equal(t, types.AreaDocs, chunks[0].Area)

	// Markdown outside a docs directory still gets the doc preset.
	md := c.ChunkFile("notes.md", numberedLines(100))
	require.Len(t, md, 2)
	assert.Equal(t, 80, md[0].EndLine)
}

func TestChunkFileTrailingNewline(t *testing.T) {
	c := New()
	content := "first line with enough content here\nsecond line with enough content here\n"
	chunks := c.ChunkFile("pkg/x.go", content)

	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.False(t, strings.HasSuffix(chunks[0].Text, "\n"))
}

func TestChunkFileTooShort(t *testing.T) {
	c := New()
	assert.Empty(t, c.ChunkFile("pkg/x.go", "hi"))
	assert.Empty(t, c.ChunkFile("pkg/x.go", "   \n\t\n"))
}

func TestChunkFileDeterministic(t *testing.T) {
	c := New()
	content := numberedLines(50)
	a := c.ChunkFile("cmd/app/main.go", content)
	b := c.ChunkFile("cmd/app/main.go", content)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Text, b[i].Text)
	}

	// Same content under a different path gets different ids.
	other := c.ChunkFile("cmd/app/other.go", content)
	assert.NotEqual(t, a[0].ID, other[0].ID)
}

func TestClassifyArea(t *testing.T) {
	tests := []struct {
		path string
		want types.Area
	}{
		{"frontend/app/App.tsx", types.AreaFrontend},
		{"ui/components/button.tsx", types.AreaFrontend},
		{"internal/server/handler.go", types.AreaBackend},
		{"cmd/app/main.go", types.AreaBackend},
		{"terraform/main.tf", types.AreaInfra},
		{"deploy/k8s/app.yaml", types.AreaInfra},
		{".github/workflows/ci.yml", types.AreaInfra},
		{"docs/architecture.md", types.AreaDocs},
		{"README.md", types.AreaDocs},
		{"main.go", types.AreaOther},
		{"scripts/gen.sql", types.AreaOther},
		// First matching rule wins: the frontend rules run before backend.
		{"web/api/handler.go", types.AreaFrontend},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyArea(tt.path), tt.path)
	}
}

func TestClassifyLanguage(t *testing.T) {
	assert.Equal(t, "go", ClassifyLanguage("internal/a.go"))
	assert.Equal(t, "typescript", ClassifyLanguage("app/view.tsx"))
	assert.Equal(t, "markdown", ClassifyLanguage("README.md"))
	assert.Equal(t, "yaml", ClassifyLanguage("deploy/app.YML"))
	assert.Equal(t, "unknown", ClassifyLanguage("Makefile"))
}
