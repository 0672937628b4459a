package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProviderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 5\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, TypeFile, p.Type())

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_attempts: 5")
}

func TestFileProviderLoadMissing(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Load(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileProviderWatchSignalsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher a moment to arm before mutating the file.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))

	select {
	case _, ok := <-ch:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change signal after writing the config file")
	}
}

func TestFileProviderWatchIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 1\n"), 0o644))

	select {
	case <-ch:
		t.Fatal("writes to sibling files must not signal")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Watch(context.Background())
	assert.Error(t, err)
}
