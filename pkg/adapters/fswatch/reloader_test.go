package fswatch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/rerun/pkg/adapters/fswatch"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, ch <-chan ports.ReloadEvent) ports.ReloadEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload event")
		return ports.ReloadEvent{}
	}
}

func TestReloader_SourceChange(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "app.go")
	require.NoError(t, os.WriteFile(script, []byte("package app"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := fswatch.New([]string{dir}, fswatch.WithDebounce(20*time.Millisecond)).Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(script, []byte("package app // v2"), 0o644))
	ev := next(t, ch)
	assert.Equal(t, script, ev.Source)
	assert.False(t, ev.DependenciesChanged)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module app"), 0o644))
	ev = next(t, ch)
	assert.True(t, ev.DependenciesChanged)
}

func TestReloader_MissingPath(t *testing.T) {
	_, err := fswatch.New([]string{filepath.Join(t.TempDir(), "nope")}).Watch(context.Background())
	assert.Error(t, err)
}

func TestReloader_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := fswatch.New([]string{t.TempDir()}).Watch(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
