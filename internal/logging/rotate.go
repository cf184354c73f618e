package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// RotatingFile is an io.WriteCloser that rotates the log file once it would
// grow past a size limit. The live file is renamed to <path>.1, older
// backups shift up by one, and backups numbered beyond maxBackups are
// removed. A single write is never split across files.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	size       int64
	file       *os.File
}

var _ io.WriteCloser = (*RotatingFile)(nil)

// OpenRotatingFile opens (appending to) the log file at path, creating its
// directory when needed. maxSizeMB is clamped to at least 1 and maxBackups to
// at least 0.
func OpenRotatingFile(path string, maxSizeMB, maxBackups int) (*RotatingFile, error) {
	maxSizeMB = max(maxSizeMB, 1)
	maxBackups = max(maxBackups, 0)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	w := &RotatingFile{
		path:       path,
		maxBytes:   int64(maxSizeMB) << 20,
		maxBackups: maxBackups,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFile) open() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("opening log file: %w", err)
	}
	w.file, w.size = f, info.Size()
	return nil
}

// Write appends p, rotating first if p would push the file over the limit.
// When rotation fails p still goes to the live file and the rotation error
// is returned.
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	var rotateErr error
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			rotateErr = fmt.Errorf("rotating log file: %w", err)
			if w.file == nil {
				return 0, rotateErr
			}
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, err
	}
	return n, rotateErr
}

// Close closes the live file.
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFile) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	if w.maxBackups == 0 {
		_ = os.Remove(w.path)
		return w.open()
	}

	_ = os.Remove(w.backup(w.maxBackups))
	for n := w.maxBackups - 1; n >= 1; n-- {
		_ = os.Rename(w.backup(n), w.backup(n+1))
	}
	if err := os.Rename(w.path, w.backup(1)); err != nil {
		// keep logging to the live file
		if openErr := w.open(); openErr != nil {
			return errors.Join(err, openErr)
		}
		return err
	}
	return w.open()
}

func (w *RotatingFile) backup(n int) string {
	return w.path + "." + strconv.Itoa(n)
}
