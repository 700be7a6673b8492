package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleetops-tracker/internal/async"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/repository"
)

func newIngestor(t *testing.T, maxBytes int64) *FSIngestor {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{
		Driver: repository.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "ingest.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { db.Close(nil) })
	return NewFSIngestor(repository.NewSourceFileRepository(db, nil), filepath.Join(t.TempDir(), "uploads"), maxBytes, nil)
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestPath_Dedup(t *testing.T) {
	t.Parallel()
	ing := newIngestor(t, 0)
	dir := t.TempDir()
	ctx := context.Background()

	a, err := ing.IngestPath(ctx, write(t, filepath.Join(dir, "a.txt"), "08:00 12345"))
	require.NoError(t, err)
	require.False(t, a.Deduplicated)
	require.Equal(t, "txt", a.FileExt)
	require.Equal(t, "a.txt", a.Filename)
	require.EqualValues(t, 11, a.Size)
	require.Len(t, a.HashHex, 64)

	b, err := ing.IngestPath(ctx, write(t, filepath.Join(dir, "copy.txt"), "08:00 12345"))
	require.NoError(t, err)
	require.True(t, b.Deduplicated)
	require.Equal(t, a.FileID, b.FileID)
}

func TestIngestPath_Rejects(t *testing.T) {
	t.Parallel()
	ing := newIngestor(t, 0)
	dir := t.TempDir()

	_, err := ing.IngestPath(context.Background(), write(t, filepath.Join(dir, "notes.docx"), "x"))
	require.ErrorIs(t, err, ErrUnsupportedExt)

	_, err = ing.IngestPath(context.Background(), filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, common.CodeSourceReadFailure, common.ErrorCode(err))
}

func TestIngestReader(t *testing.T) {
	t.Parallel()
	ing := newIngestor(t, 32)
	ctx := context.Background()

	res, err := ing.IngestReader(ctx, "../../escala.csv", strings.NewReader("time,fleet\n08:00,123"))
	require.NoError(t, err)
	require.Equal(t, "escala.csv", res.Filename)
	require.Equal(t, filepath.Join(ing.UploadDir, res.HashHex+".csv"), res.SourcePath)
	data, err := os.ReadFile(res.SourcePath)
	require.NoError(t, err)
	require.Equal(t, "time,fleet\n08:00,123", string(data))

	again, err := ing.IngestReader(ctx, "other.csv", strings.NewReader("time,fleet\n08:00,123"))
	require.NoError(t, err)
	require.True(t, again.Deduplicated)

	_, err = ing.IngestReader(ctx, "big.txt", strings.NewReader(strings.Repeat("9", 33)))
	require.Equal(t, common.CodeInvalidInput, common.ErrorCode(err))

	_, err = ing.IngestReader(ctx, "noext", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupportedExt)

	leftovers, err := filepath.Glob(filepath.Join(ing.UploadDir, "*.part"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestIngestDirectory(t *testing.T) {
	t.Parallel()
	ing := newIngestor(t, 0)
	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "08:00 1")
	write(t, filepath.Join(root, "sub", "b.csv"), "08:00,2")
	write(t, filepath.Join(root, "sub", "dup.txt"), "08:00 1")
	write(t, filepath.Join(root, "readme.md"), "ignored")
	write(t, filepath.Join(root, ".hidden", "c.txt"), "08:00 3")

	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.EqualValues(t, 3, stats.Matched)
	require.EqualValues(t, 3, stats.Succeeded)
	require.EqualValues(t, 1, stats.Deduplicated)
	require.Zero(t, stats.Failed)
	require.EqualValues(t, 21, stats.Bytes)
	require.Contains(t, stats.String(), "size=21 B")

	_, _, err = ing.IngestDirectory(context.Background(), " ", false)
	require.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	t.Parallel()
	require.True(t, IsHidden("/x/.git"))
	require.False(t, IsHidden("/x/a.txt"))
	require.False(t, IsHidden("."))
}

func TestStartWatcher(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, filepath.Join(root, "existing.txt"), "08:00 1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "existing.txt"), next(t, paths))

	write(t, filepath.Join(root, "ignored.md"), "x")
	created := write(t, filepath.Join(root, "new.csv"), "08:00,2")
	require.Equal(t, created, next(t, paths))

	cancel()
	for range paths {
	}

	_, _, err = StartWatcher(context.Background(), WatchConfig{})
	require.Error(t, err)
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no watcher event")
		return ""
	}
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func (q *recordingQueue) ids() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uuid.UUID, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.FileID)
	}
	return out
}

func TestAutoIngest_QueuesNewContentOnce(t *testing.T) {
	t.Parallel()
	ing := newIngestor(t, 0)
	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "08:00 1")
	write(t, filepath.Join(root, "b.txt"), "08:00 1")

	q := &recordingQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- AutoIngest(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 50 * time.Millisecond}, ing, q)
	}()

	require.Eventually(t, func() bool { return len(q.ids()) == 1 }, 5*time.Second, 10*time.Millisecond)
	write(t, filepath.Join(root, "c.txt"), "09:00 2")
	require.Eventually(t, func() bool { return len(q.ids()) == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	ids := q.ids()
	require.NotEqual(t, ids[0], ids[1])
}
