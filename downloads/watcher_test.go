package downloads

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestWaitFor_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.txt", []byte("old"))

	w := NewWatcher(dir)

	go func() {
		time.Sleep(100 * time.Millisecond)
		writeFile(t, dir, "report.txt", []byte("fresh"))
	}()

	file, err := w.WaitFor(context.Background(), "*", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", file.FileName)
	assert.Equal(t, int64(5), file.Size)
}

func TestWaitFor_IgnoresInProgressFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir)

	writeFile(t, dir, "partial.crdownload", []byte("still downloading"))

	_, err := w.WaitFor(context.Background(), "*", 1500*time.Millisecond)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestWaitFor_GlobFilters(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir)

	writeFile(t, dir, "notes.txt", []byte("text"))

	_, err := w.WaitFor(context.Background(), "*.pdf", 1500*time.Millisecond)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestWaitFor_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WaitFor(ctx, "*", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReset_MovesBaseline(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir)

	writeFile(t, dir, "before.txt", []byte("x"))
	w.Reset()

	// The pre-reset file must not satisfy the wait.
	_, err := w.WaitFor(context.Background(), "*", 1500*time.Millisecond)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestDescribe_SniffsMimeType(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir)

	// Minimal PNG header.
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	path := writeFile(t, dir, "image.png", png)

	file, err := w.describe(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.MimeType)
}
