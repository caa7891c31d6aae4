// Package mediatype maps archive and page names to the small fixed set of
// content types credscan understands.
//
// Detection is by file extension, case-insensitive, the same way a desktop
// file manager guesses types. A Sniffer can optionally fall back to magic
// bytes for names that carry no known extension.
package mediatype

import (
	"bytes"
	"path"
	"strings"
)

// Type is a MIME content type.
type Type string

const (
	// Zip is a plain zip container
	Zip Type = "application/zip"

	// CBZ is a comic book zip archive
	CBZ Type = "application/x-cbz"

	// PNG page image
	PNG Type = "image/png"

	// JPEG page image
	JPEG Type = "image/jpeg"

	// GIF page image
	GIF Type = "image/gif"
)

var byExtension = map[string]Type{
	".zip":  Zip,
	".cbz":  CBZ,
	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".jpe":  JPEG,
	".gif":  GIF,
}

// extensions holds the output file extension for each image type.
// JPEG is always "jpeg", never one of the three-letter aliases.
var extensions = map[Type]string{
	PNG:  "png",
	JPEG: "jpeg",
	GIF:  "gif",
}

// FromName returns the content type implied by the extension of name, or ""
// if the extension is unknown. Works for both OS paths and zip entry names.
func FromName(name string) Type {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	return byExtension[ext]
}

// Sniff detects a content type from the leading bytes of a file.
// Returns "" when the header matches none of the known signatures.
func Sniff(header []byte) Type {
	switch {
	case bytes.HasPrefix(header, []byte("PK\x03\x04")), bytes.HasPrefix(header, []byte("PK\x05\x06")):
		return Zip
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case bytes.HasPrefix(header, []byte("\xff\xd8\xff")):
		return JPEG
	case bytes.HasPrefix(header, []byte("GIF87a")), bytes.HasPrefix(header, []byte("GIF89a")):
		return GIF
	}
	return ""
}

// SniffLen is the number of header bytes Sniff needs.
const SniffLen = 8

// IsArchive reports whether t is an accepted archive container type.
func IsArchive(t Type) bool {
	return t == Zip || t == CBZ
}

// IsImage reports whether t is an accepted page image type.
func IsImage(t Type) bool {
	_, ok := extensions[t]
	return ok
}

// Extension returns the file extension (without dot) used when persisting a
// page of type t. Returns "" for non-image types.
func Extension(t Type) string {
	return extensions[t]
}

// Sniffer resolves content types for files and archive entries.
type Sniffer struct {
	// Content enables magic-byte detection for names without a known extension.
	Content bool
}

// Detect returns the type of name. header is consulted only when the name is
// not recognised and content sniffing is enabled; it may be nil otherwise.
func (s Sniffer) Detect(name string, header []byte) Type {
	if t := FromName(name); t != "" {
		return t
	}
	if !s.Content || len(header) == 0 {
		return ""
	}
	return Sniff(header)
}

// NeedsHeader reports whether Detect would look at file contents for name.
func (s Sniffer) NeedsHeader(name string) bool {
	return s.Content && FromName(name) == ""
}
