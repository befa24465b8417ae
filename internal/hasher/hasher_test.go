package hasher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	// sha256("hello world")
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		Sum([]byte("hello world")))

	// Different content yields a different digest.
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))

	// Deterministic.
	assert.Equal(t, Sum([]byte("same")), Sum([]byte("same")))
}

func TestSumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.txt")
	data := []byte("some file content\nwith two lines\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := SumFile(path)
	require.NoError(t, err)
	assert.Equal(t, Sum(data), got)
}

func TestSumFileMissing(t *testing.T) {
	_, err := SumFile(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
