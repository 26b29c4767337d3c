package loader

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nlepage/go-tarfs"
)

// classPattern matches the entries that declare loadable classes.
const classPattern = "**/*.{class,wasm}"

// Source is an opened archive or directory on the search path.
type Source struct {
	Path  string
	fsys  fs.FS
	close func() error
}

// OpenSource opens a directory, zip/jar archive or tar/tar.gz archive as a
// read-only file system.
func OpenSource(p string) (*Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", p, err)
	}
	if info.IsDir() {
		return &Source{Path: p, fsys: os.DirFS(p)}, nil
	}

	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".jar"):
		zr, err := zip.OpenReader(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open zip archive %s: %w", p, err)
		}
		return &Source{Path: p, fsys: zr, close: zr.Close}, nil

	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return openTar(p, !strings.HasSuffix(lower, ".tar"))

	default:
		return nil, fmt.Errorf("unsupported source type: %s", p)
	}
}

func openTar(p string, gzipped bool) (*Source, error) {
	f, err := os.Open(p) //nolint:gosec // path comes from the plugin search path
	if err != nil {
		return nil, fmt.Errorf("failed to open tar archive %s: %w", p, err)
	}

	if !gzipped {
		// tarfs may read entries lazily from the file, keep it open.
		tfs, err := tarfs.New(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create tarfs: %w", err)
		}
		return &Source{Path: p, fsys: tfs, close: f.Close}, nil
	}

	defer func() {
		_ = f.Close()
	}()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gzip reader: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tfs, err := tarfs.New(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to create tarfs: %w", err)
	}
	return &Source{Path: p, fsys: tfs}, nil
}

// archivePattern matches the archive file names accepted as sources.
const archivePattern = "*.{zip,jar,tar,tar.gz,tgz}"

// IsSourcePath reports whether a file name looks like a loadable archive.
func IsSourcePath(name string) bool {
	ok, _ := doublestar.Match(archivePattern, strings.ToLower(path.Base(name)))
	return ok
}

// Close releases the underlying archive.
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// ReadFile reads an entry. It reports false when the entry is missing.
// Entries larger than limit fail with EntryTooLargeError; a limit <= 0
// reads the entry whole.
func (s *Source) ReadFile(name string, limit int64) ([]byte, bool, error) {
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s in %s: %w", name, s.Path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if limit > 0 {
		r = newLimitedReader(f, name, limit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s from %s: %w", name, s.Path, err)
	}
	return data, true, nil
}

// Classes lists the class names declared in the source, sorted.
// Entry paths lose their extension and use '.' as separator; names
// containing '$' are nested types and are skipped.
func (s *Source) Classes() ([]string, error) {
	matches, err := doublestar.Glob(s.fsys, classPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.Path, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(m, path.Ext(m))
		if strings.Contains(name, "$") {
			continue
		}
		names = append(names, strings.ReplaceAll(name, "/", "."))
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// entryName maps a class name to its entry path with the given extension.
func entryName(className, ext string) string {
	return strings.ReplaceAll(className, ".", "/") + ext
}
