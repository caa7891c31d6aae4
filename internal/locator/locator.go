// Package locator finds candidate archive files under a root path.
package locator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/dyluth/credscan/internal/mediatype"
)

var (
	// ErrNotFound is returned when the root path does not exist.
	ErrNotFound = errors.New("path does not exist")

	// ErrInvalidInput is returned when the root exists but is neither a
	// directory nor a recognised archive file.
	ErrInvalidInput = errors.New("not a directory or archive file")
)

// Locate validates root and returns a lazy, depth-first sequence of archive
// paths beneath it.
//
// If root is itself an archive file the sequence yields it alone. Files that
// are not archives are skipped silently. A directory that cannot be read is
// yielded as a (path, err) pair and skipped; the walk continues. The sequence
// is single-use: call Locate again to rescan.
func Locate(root string, sniffer mediatype.Sniffer) (iter.Seq2[string, error], error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	if info.Mode().IsRegular() {
		ok, err := isArchive(root, sniffer)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", root, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", root, ErrInvalidInput)
		}
		return func(yield func(string, error) bool) {
			yield(root, nil)
		}, nil
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrInvalidInput)
	}

	return walk(root, sniffer), nil
}

// IsArchive reports whether the file at path is an accepted archive.
func IsArchive(path string, sniffer mediatype.Sniffer) bool {
	ok, err := isArchive(path, sniffer)
	return err == nil && ok
}

// walkRoot returns the path to hand to filepath.WalkDir for root. WalkDir
// does not descend into a root that is a symlink, so a linked root gets a
// trailing separator, which makes Lstat resolve the link. Yielded paths keep
// the caller's prefix.
func walkRoot(root string) string {
	info, err := os.Lstat(root)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return root
	}
	return root + string(filepath.Separator)
}

func walk(root string, sniffer mediatype.Sniffer) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = filepath.WalkDir(walkRoot(root), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Root itself was validated by Locate; anything failing here is
				// a subdirectory or entry that vanished or is unreadable.
				if !yield(path, err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			// Symlinked files are followed; symlinked directories are not.
			if d.Type()&fs.ModeSymlink != 0 {
				info, statErr := os.Stat(path)
				if statErr != nil || !info.Mode().IsRegular() {
					return nil
				}
			} else if !d.Type().IsRegular() {
				return nil
			}

			ok, inspectErr := isArchive(path, sniffer)
			if inspectErr != nil {
				if !yield(path, inspectErr) {
					return filepath.SkipAll
				}
				return nil
			}
			if ok && !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func isArchive(path string, sniffer mediatype.Sniffer) (bool, error) {
	if !sniffer.NeedsHeader(path) {
		return mediatype.IsArchive(sniffer.Detect(path, nil)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, mediatype.SniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return mediatype.IsArchive(sniffer.Detect(path, header[:n])), nil
}
