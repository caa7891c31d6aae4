// Package archive reads page images out of zip based comic archives.
package archive

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/klauspost/compress/zip"
)

// DefaultMaxPageBytes caps how much of a single entry is read into memory.
const DefaultMaxPageBytes = 64 << 20

var (
	// ErrArchiveRead is returned when an archive cannot be opened or its
	// directory is corrupt. It aborts processing of that archive only.
	ErrArchiveRead = errors.New("archive read error")

	// ErrPageTooLarge is returned for an entry whose content exceeds the
	// configured page size limit.
	ErrPageTooLarge = errors.New("page exceeds size limit")
)

// Page is one image entry read from an archive.
type Page struct {
	Data        []byte
	ContentType mediatype.Type
	Name        string
}

// PageError describes a single entry that could not be read.
// Extraction continues with the next entry.
type PageError struct {
	Name string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("failed to read entry %s: %v", e.Name, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Options tune extraction.
type Options struct {
	Sniffer      mediatype.Sniffer
	MaxPageBytes int64 // 0 = DefaultMaxPageBytes
}

// Reader is an open archive.
type Reader struct {
	zr   *zip.ReadCloser
	opts Options
}

// Open opens the archive at path as a random-access entry container.
// Returns an error wrapping ErrArchiveRead when the file is not a readable zip.
func Open(path string, opts Options) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveRead, path, err)
	}
	if opts.MaxPageBytes <= 0 {
		opts.MaxPageBytes = DefaultMaxPageBytes
	}
	return &Reader{zr: zr, opts: opts}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// Pages returns a lazy sequence over the image entries of the archive, in
// central directory order. Non-image entries are skipped. Each image entry is
// read fully before it is yielded; an entry that fails to read is yielded as
// a *PageError and iteration continues.
func (r *Reader) Pages() iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for _, f := range r.zr.File {
			if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
				continue
			}

			contentType, err := r.detect(f)
			if err != nil {
				if !yield(Page{Name: f.Name}, &PageError{Name: f.Name, Err: err}) {
					return
				}
				continue
			}
			if !mediatype.IsImage(contentType) {
				continue
			}

			data, err := r.read(f)
			if err != nil {
				if !yield(Page{Name: f.Name}, &PageError{Name: f.Name, Err: err}) {
					return
				}
				continue
			}

			if !yield(Page{Data: data, ContentType: contentType, Name: f.Name}, nil) {
				return
			}
		}
	}
}

func (r *Reader) detect(f *zip.File) (mediatype.Type, error) {
	if !r.opts.Sniffer.NeedsHeader(f.Name) {
		return r.opts.Sniffer.Detect(f.Name, nil), nil
	}

	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	header := make([]byte, mediatype.SniffLen)
	n, err := io.ReadFull(rc, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return r.opts.Sniffer.Detect(f.Name, header[:n]), nil
}

// read loads an entry into memory. The limit is enforced on the bytes actually
// decompressed, so a lying header cannot bypass it.
func (r *Reader) read(f *zip.File) ([]byte, error) {
	limit := r.opts.MaxPageBytes
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w (%d > %d bytes)", ErrPageTooLarge, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (more than %d bytes)", ErrPageTooLarge, limit)
	}
	return data, nil
}
