package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer(t *testing.T) {
	t.Run("nothing pending blocks", func(t *testing.T) {
		d := NewDebouncer(10*time.Millisecond, 50*time.Millisecond)
		defer d.Stop()
		assert.Nil(t, d.Ready())
		assert.Empty(t, d.Flush())
	})

	t.Run("batches bursts", func(t *testing.T) {
		d := NewDebouncer(30*time.Millisecond, time.Second)
		defer d.Stop()

		for i := 0; i < 5; i++ {
			d.Add(Event{Type: EventWrite, Path: "a"})
		}
		assert.Equal(t, 5, d.Pending())

		select {
		case <-d.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("debouncer never fired")
		}
		batch := d.Flush()
		assert.Len(t, batch, 5)
		assert.Equal(t, 0, d.Pending())
		assert.Nil(t, d.Ready())
	})

	t.Run("max delay bounds a busy burst", func(t *testing.T) {
		d := NewDebouncer(200*time.Millisecond, 50*time.Millisecond)
		defer d.Stop()

		start := time.Now()
		d.Add(Event{Type: EventCreate, Path: "a"})
		<-d.Ready()
		assert.Less(t, time.Since(start), 150*time.Millisecond)
	})
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "write", EventWrite.String())
	assert.Equal(t, "remove", EventRemove.String())
	assert.Equal(t, "rename", EventRename.String())
	assert.Equal(t, "chmod", EventChmod.String())
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), DefaultConfig())
	assert.ErrorIs(t, err, common.ErrRootNotFound)
}

type batches struct {
	mu  sync.Mutex
	got [][]Event
	ch  chan struct{}
}

func (b *batches) handle(_ context.Context, batch []Event) {
	b.mu.Lock()
	b.got = append(b.got, batch)
	b.mu.Unlock()
	select {
	case b.ch <- struct{}{}:
	default:
	}
}

func (b *batches) paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, batch := range b.got {
		for _, e := range batch {
			out = append(out, e.Path)
		}
	}
	return out
}

func TestWatcherDeliversBatches(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Application"), 0o755))

	w, err := New(root, Config{DebounceDelay: 50 * time.Millisecond, MaxDebounceDelay: time.Second, IgnorePatterns: []string{"*.log"}})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	b := &batches{ch: make(chan struct{}, 1)}
	go func() { done <- w.Run(ctx, b.handle) }()

	// Give the loop time to register the directories.
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(root, "Application", "inject.dll")
	require.NoError(t, os.WriteFile(filepath.Join(root, "Application", "noise.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("evil"), 0o644))

	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	cancel()
	require.NoError(t, <-done)

	paths := b.paths()
	assert.Contains(t, paths, target)
	assert.NotContains(t, paths, filepath.Join(root, "Application", "noise.log"))
}
