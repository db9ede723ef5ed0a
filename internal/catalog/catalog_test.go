package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMessages_Found(t *testing.T) {
	m := Default()

	assert.Equal(t, "Sorry — I couldn't find a good match.", m.Found(0))
	assert.Equal(t, "Found 1 relevant result. See details below.", m.Found(1))
	assert.Equal(t, "Found 3 relevant results. See details below.", m.Found(3))
}

func TestLoad_OverlaysNonEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: Hello there\ncleared: \"\"\n"), 0o644))

	m, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "Hello there", m.Greeting)
	assert.Equal(t, Default().Cleared, m.Cleared)
	assert.Equal(t, Default().Unreachable, m.Unreachable)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: [unterminated"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestStore_SetGet(t *testing.T) {
	s := NewStore(Default())
	m := Default()
	m.NoMatch = "nothing"
	s.Set(m)

	assert.Equal(t, "nothing", s.Get().NoMatch)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: first\n"), 0o644))

	store := NewStore(Default())
	w, err := NewWatcher(path, store, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give Run a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("greeting: second\n"), 0o644))

	assert.Eventually(t, func() bool {
		return store.Get().Greeting == "second"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_KeepsLastGoodCopyOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: first\n"), 0o644))

	store := NewStore(Default())
	w, err := NewWatcher(path, store, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("greeting: good\n"), 0o644))
	require.Eventually(t, func() bool {
		return store.Get().Greeting == "good"
	}, 5*time.Second, 20*time.Millisecond)

	// replace by rename so the watcher never sees a truncated file
	tmp := filepath.Join(dir, "messages.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("greeting: [unterminated\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, "good", store.Get().Greeting)
}
