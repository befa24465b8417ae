package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersDebouncedReindex(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	trigger := make(chan struct{}, 8)

	w := New(root, func(ctx context.Context, r string) {
		assert.Equal(t, root, r)
		runs.Add(1)
		trigger <- struct{}{}
	}, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// A burst of writes collapses into one run.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-trigger:
	case <-time.After(3 * time.Second):
		t.Fatal("reindex never fired")
	}

	// Let any stragglers land before counting.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestWatcherIgnoresExcludedDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	trigger := make(chan struct{}, 8)
	w := New(root, func(ctx context.Context, r string) {
		trigger <- struct{}{}
	}, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Events for policy-excluded names never schedule a run.
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))

	select {
	case <-trigger:
		t.Fatal("excluded paths should not trigger a reindex")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w := New(t.TempDir(), func(context.Context, string) {}, 0, nil)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}
