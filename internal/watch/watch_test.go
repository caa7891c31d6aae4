package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/pipeline"
	"github.com/dyluth/credscan/internal/testutil"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	paths chan string
}

func (p *recordingProcessor) ProcessArchive(ctx context.Context, path string) (pipeline.ArchiveStats, error) {
	p.paths <- path
	return pipeline.ArchiveStats{Archive: path}, nil
}

func newWatcher(t *testing.T, root string) (*Watcher, *recordingProcessor) {
	t.Helper()
	proc := &recordingProcessor{paths: make(chan string, 16)}
	w, err := New(root, Options{Settle: 50 * time.Millisecond, Processor: proc})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, proc
}

func waitFor(t *testing.T, paths <-chan string) string {
	t.Helper()
	select {
	case p := <-paths:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for archive to be processed")
		return ""
	}
}

func TestNew(t *testing.T) {
	t.Run("requires processor", func(t *testing.T) {
		_, err := New(t.TempDir(), Options{})
		assert.Error(t, err)
	})

	t.Run("root must be a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "vol.cbz")
		require.NoError(t, os.WriteFile(file, nil, 0644))
		_, err := New(file, Options{Processor: &recordingProcessor{}})
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "missing"), Options{Processor: &recordingProcessor{}})
		assert.Error(t, err)
	})

	t.Run("default settle", func(t *testing.T) {
		w, err := New(t.TempDir(), Options{Processor: &recordingProcessor{}})
		require.NoError(t, err)
		defer w.Close()
		assert.Equal(t, DefaultSettle, w.opts.Settle)
	})
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		dir        bool
		op         fsnotify.Op
		wantQueued bool
	}{
		{name: "archive created", file: "vol1.cbz", op: fsnotify.Create, wantQueued: true},
		{name: "archive written", file: "vol1.zip", op: fsnotify.Write, wantQueued: true},
		{name: "upper case extension", file: "VOL1.CBZ", op: fsnotify.Create, wantQueued: true},
		{name: "non archive ignored", file: "notes.txt", op: fsnotify.Create, wantQueued: false},
		{name: "image ignored", file: "cover.png", op: fsnotify.Write, wantQueued: false},
		{name: "chmod ignored", file: "vol1.cbz", op: fsnotify.Chmod, wantQueued: false},
		{name: "directory not queued", file: "series", dir: true, op: fsnotify.Create, wantQueued: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			w, _ := newWatcher(t, root)

			path := filepath.Join(root, tt.file)
			if tt.dir {
				require.NoError(t, os.Mkdir(path, 0755))
			} else {
				require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
			}

			queued := w.handleEvent(fsnotify.Event{Name: path, Op: tt.op})
			assert.Equal(t, tt.wantQueued, queued)
			_, pending := w.pending[path]
			assert.Equal(t, tt.wantQueued, pending)
		})
	}

	t.Run("remove drops pending archive", func(t *testing.T) {
		root := t.TempDir()
		w, _ := newWatcher(t, root)
		path := filepath.Join(root, "vol1.cbz")
		require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

		require.True(t, w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create}))
		require.NoError(t, os.Remove(path))
		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Remove})
		assert.Empty(t, w.pending)
	})

	t.Run("new directory queues archives already inside", func(t *testing.T) {
		root := t.TempDir()
		w, _ := newWatcher(t, root)

		dir := filepath.Join(root, "series")
		archive := testutil.WriteArchive(t, dir, "vol1.cbz")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0644))

		w.handleEvent(fsnotify.Event{Name: dir, Op: fsnotify.Create})
		assert.Contains(t, w.pending, archive)
		assert.Len(t, w.pending, 1)
	})

	t.Run("content sniffing", func(t *testing.T) {
		root := t.TempDir()
		proc := &recordingProcessor{paths: make(chan string, 1)}
		w, err := New(root, Options{Processor: proc, Sniffer: mediatype.Sniffer{Content: true}})
		require.NoError(t, err)
		defer w.Close()

		path := testutil.WriteArchive(t, root, "volume-one")
		assert.True(t, w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create}))
	})
}

func TestFlush_WaitsForSizeToSettle(t *testing.T) {
	root := t.TempDir()
	w, proc := newWatcher(t, root)

	path := filepath.Join(root, "vol1.cbz")
	require.NoError(t, os.WriteFile(path, []byte("part"), 0644))
	w.queue(path)

	now := time.Now()
	require.NoError(t, w.flush(context.Background(), now))
	assert.Len(t, proc.paths, 0, "first flush only records the size")

	require.NoError(t, os.WriteFile(path, []byte("partial write"), 0644))
	require.NoError(t, w.flush(context.Background(), now.Add(time.Second)))
	assert.Len(t, proc.paths, 0, "size changed, timer restarts")

	require.NoError(t, w.flush(context.Background(), now.Add(2*time.Second)))
	require.Len(t, proc.paths, 1)
	assert.Equal(t, path, <-proc.paths)
	assert.Empty(t, w.pending)
	assert.Equal(t, 1, w.Processed())
}

func TestFlush_DropsVanishedFiles(t *testing.T) {
	root := t.TempDir()
	w, proc := newWatcher(t, root)

	path := filepath.Join(root, "gone.cbz")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	w.queue(path)
	require.NoError(t, os.Remove(path))

	require.NoError(t, w.flush(context.Background(), time.Now()))
	assert.Empty(t, w.pending)
	assert.Len(t, proc.paths, 0)
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	w, proc := newWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first := testutil.WriteArchive(t, root, "vol1.cbz", testutil.Entry{Name: "001.png", Data: []byte("x")})
	assert.Equal(t, first, waitFor(t, proc.paths))

	nested := testutil.WriteArchive(t, filepath.Join(root, "series", "arc"), "vol2.zip")
	assert.Equal(t, nested, waitFor(t, proc.paths))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0644))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	assert.Len(t, proc.paths, 0)
}

func TestRun_SymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "library")
	require.NoError(t, os.Symlink(target, link))

	w, proc := newWatcher(t, link)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	testutil.WriteArchive(t, link, "vol1.cbz", testutil.Entry{Name: "001.png", Data: []byte("x")})
	got := waitFor(t, proc.paths)
	assert.Equal(t, "vol1.cbz", filepath.Base(got))
	assert.FileExists(t, got)
}
