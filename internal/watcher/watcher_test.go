package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gensynth/internal/watcher"
)

func startWatcher(t *testing.T, dir string) <-chan []watcher.Change {
	t.Helper()
	cfg := watcher.DefaultConfig(dir)
	cfg.DebounceDur = 50 * time.Millisecond
	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	changes, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return changes
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: C\n"), 0644))

	changes := startWatcher(t, dir)

	// Rapid writes should coalesce into a single batch
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("name: C%d\n", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case batch := <-changes:
		require.Equal(t, []watcher.Change{{Path: path}}, batch)
	case <-time.After(time.Second):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-changes:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0644))

	changes := startWatcher(t, dir)
	require.NoError(t, os.WriteFile(other, []byte("changed"), 0644))

	select {
	case batch := <-changes:
		t.Fatalf("unexpected notification: %v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sql.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: SQL\n"), 0644))

	changes := startWatcher(t, dir)
	require.NoError(t, os.Remove(path))

	select {
	case batch := <-changes:
		require.Len(t, batch, 1)
		assert.Equal(t, path, batch[0].Path)
		assert.True(t, batch[0].Removed)
	case <-time.After(time.Second):
		t.Fatal("expected removal notification")
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	_, err = w.Start()
	require.NoError(t, err)
	require.NoError(t, w.Stop())
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/tmp/langs")
	assert.Equal(t, "/tmp/langs", cfg.Dir)
	assert.Equal(t, []string{".yaml", ".yml"}, cfg.Extensions)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDur)
}
