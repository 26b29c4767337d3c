package loader

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxEntrySize bounds a single entry read from a source.
const DefaultMaxEntrySize int64 = 64 << 20

// EntryTooLargeError is returned when a source entry exceeds the size limit.
type EntryTooLargeError struct {
	Name  string
	Limit int64
}

func (e *EntryTooLargeError) Error() string {
	return fmt.Sprintf("%s exceeds the %s entry limit", e.Name, FormatSize(e.Limit))
}

// IsEntryTooLarge returns true if err is an EntryTooLargeError.
func IsEntryTooLarge(err error) bool {
	var tooLarge *EntryTooLargeError
	return errors.As(err, &tooLarge)
}

// limitedReader reads at most limit bytes and fails once more are available.
type limitedReader struct {
	r     io.Reader
	name  string
	n     int64
	limit int64
}

func newLimitedReader(r io.Reader, name string, limit int64) *limitedReader {
	return &limitedReader{r: r, name: name, n: limit, limit: limit}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		// Read one more byte to tell an exact fit from an overflow.
		var one [1]byte
		extra, err := l.r.Read(one[:])
		if extra > 0 {
			return 0, &EntryTooLargeError{Name: l.name, Limit: l.limit}
		}
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}

// FormatSize returns a human-readable size string.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
