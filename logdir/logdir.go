// Copyright (c) 2024 BVK Chaitanya

/*
Package logdir implements a log backend that limits log file(s) size to a fixed
size in a given directory.
*/
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// FileNameReuseInterval contains the time interval during which a new log
	// backend instance will attempt to reuse (i.e., append-to) existing log file
	// name if present. This avoids filling up the logs directory with too many
	// log files when the program is in a crash-loop.
	FileNameReuseInterval = time.Hour

	// FileNameTimeLocation contains the timezone for the timestamp in the log
	// file names.
	FileNameTimeLocation = time.UTC

	// FileSizeLimit contains the maximum size limit in bytes for the log files.
	FileSizeLimit int64 = 100 << 20

	// FileMode contains the file mode and permissions value for the log files.
	FileMode = os.FileMode(0600)
)

// Backend is an io.Writer that rotates into a new log file when the current
// file reaches the size limit. It is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	fp *os.File

	size int64

	dirname, logname string
}

func New(dirname, logname string) (*Backend, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	fp, size, err := openFile(dirname, logname, time.Now(), FileNameReuseInterval)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	b := &Backend{
		fp:      fp,
		size:    size,
		dirname: dirname,
		logname: logname,
	}
	return b, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return os.ErrClosed
	}
	err := b.fp.Close()
	b.fp = nil
	return err
}

// Name returns the current log file path.
func (b *Backend) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return ""
	}
	return b.fp.Name()
}

func fileName(logname string, at time.Time, truncate time.Duration) string {
	at = at.In(FileNameTimeLocation)
	if truncate != 0 {
		at = at.Truncate(truncate)
	}
	uniq := fmt.Sprintf("%d%02d%02d-%02d%02d%02d.%09d", at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), at.Nanosecond())
	return fmt.Sprintf("%s-%s.log", logname, uniq)
}

func openFile(dirname, logname string, at time.Time, truncate time.Duration) (*os.File, int64, error) {
	filename := fileName(logname, at, truncate)
	fp, err := os.OpenFile(filepath.Join(dirname, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return nil, -1, fmt.Errorf("could not open/create log file: %w", err)
	}
	finfo, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, -1, fmt.Errorf("could not get file size: %w", err)
	}
	size := finfo.Size()
	if size >= FileSizeLimit && truncate != 0 {
		fp.Close()
		return openFile(dirname, logname, at, 0)
	}
	return fp, size, nil
}

func (b *Backend) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return 0, os.ErrClosed
	}
	if b.size > 0 && b.size+int64(len(data)) > FileSizeLimit {
		fp, size, err := openFile(b.dirname, b.logname, time.Now(), 0)
		if err != nil {
			return 0, fmt.Errorf("could not open new log file: %w", err)
		}
		b.fp.Close()
		b.fp, b.size = fp, size
	}
	n, err := b.fp.Write(data)
	b.size += int64(n)
	return n, err
}
