// Package downloads polls a download directory for completed files.
package downloads

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/browserscript/browserscript/models"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// ErrDownloadTimeout reports that no new file appeared in time.
var ErrDownloadTimeout = errors.New("no download completed in time")

// defaultIgnoreExtensions are the in-progress suffixes browsers use
// while a download is still being written.
var defaultIgnoreExtensions = []string{"crdownload", "tmp", "part"}

// Watcher tracks the number of completed files in a download
// directory so a later WaitFor can detect a new arrival. Reset the
// baseline whenever the page navigates.
type Watcher struct {
	dir        string
	ignoreExts []string
	baseline   int
}

func NewWatcher(dir string) *Watcher {
	w := &Watcher{dir: dir, ignoreExts: defaultIgnoreExtensions}
	w.Reset()
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Reset re-counts the completed files currently present; the next
// WaitFor only reports files that appear after this point.
func (w *Watcher) Reset() {
	w.baseline = w.count("*")
}

func (w *Watcher) count(glob string) int {
	n := 0
	for _, path := range w.matches(glob) {
		if !w.inProgress(path) {
			n++
		}
	}
	return n
}

func (w *Watcher) matches(glob string) []string {
	var out []string
	filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(glob, d.Name()); ok {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func (w *Watcher) inProgress(path string) bool {
	ext := filepath.Ext(path)
	for _, ignore := range w.ignoreExts {
		if ext == "."+ignore {
			return true
		}
	}
	return false
}

// WaitFor polls once a second until a new completed file matching
// glob ("*" for any) shows up, then returns it with its content type
// sniffed from the leading bytes. The newest file wins when several
// appear at once.
func (w *Watcher) WaitFor(ctx context.Context, glob string, timeout time.Duration) (*models.DownloadedFile, error) {
	if glob == "" {
		glob = "*"
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if w.count(glob) > w.baseline {
			newest := w.newest(glob)
			if newest == "" {
				continue
			}
			return w.describe(newest)
		}

		if time.Now().After(deadline) {
			return nil, errors.Wrapf(ErrDownloadTimeout, "glob %q after %s", glob, timeout)
		}
	}
}

func (w *Watcher) newest(glob string) string {
	var newest string
	var newestTime time.Time
	for _, path := range w.matches(glob) {
		if w.inProgress(path) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = path
			newestTime = info.ModTime()
		}
	}
	return newest
}

func (w *Watcher) describe(path string) (*models.DownloadedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat downloaded file")
	}
	file := &models.DownloadedFile{
		FileName:     filepath.Base(path),
		FilePath:     path,
		Size:         info.Size(),
		DownloadTime: info.ModTime(),
	}

	// Sniff the content type from the file header; unknown types just
	// leave MimeType empty.
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		head := make([]byte, 261)
		n, _ := f.Read(head)
		if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
			file.MimeType = kind.MIME.Value
		}
	}

	return file, nil
}
