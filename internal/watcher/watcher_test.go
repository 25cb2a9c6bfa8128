package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/scriptlet/internal/store"
)

// collectEvents runs a watcher over dir and gathers events until timeout.
func collectEvents(t *testing.T, dir string, act func()) []ChangeEvent {
	t.Helper()

	s := store.NewDirStore(dir)
	w, err := New(dir, s, nil, 30*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	var mu sync.Mutex
	var events []ChangeEvent
	w.OnChange(func(ev ChangeEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to start before acting.
	time.Sleep(50 * time.Millisecond)
	act()
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	out := make([]ChangeEvent, len(events))
	copy(out, events)
	return out
}

func TestWriteEventReported(t *testing.T) {
	dir := t.TempDir()

	events := collectEvents(t, dir, func() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tpl"), []byte("v1"), 0o644))
	})

	require.NotEmpty(t, events)
	assert.Equal(t, "page", events[0].Template)
	assert.False(t, events[0].Removed)
}

func TestRemoveEventReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tpl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	events := collectEvents(t, dir, func() {
		require.NoError(t, os.Remove(path))
	})

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "page", last.Template)
	assert.True(t, last.Removed)
}

func TestNonTemplateFilesIgnored(t *testing.T) {
	dir := t.TempDir()

	events := collectEvents(t, dir, func() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	})

	assert.Empty(t, events)
}

func TestWriteBurstDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tpl")

	events := collectEvents(t, dir, func() {
		for i := 0; i < 5; i++ {
			require.NoError(t, os.WriteFile(path, []byte{byte('0' + i)}, 0o644))
			time.Sleep(5 * time.Millisecond)
		}
	})

	assert.Len(t, events, 1, "burst collapses to one event")
}
