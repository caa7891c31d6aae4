package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/credscan/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Format selects the config file syntax
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat validates a --format flag value
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unknown config format: %s (must be 'yaml' or 'toml')", s)
	}
}

// FileName returns the config file name written for a format
func FileName(f Format) string {
	if f == FormatTOML {
		return "credscan.toml"
	}
	return "credscan.yaml"
}

// Initialize writes a commented default config file into dir and returns its path.
// If force is true, an existing file of the same name is replaced.
func Initialize(dir string, format Format, force bool) (string, error) {
	path := filepath.Join(dir, FileName(format))

	if force {
		if err := handleForce(path); err != nil {
			return "", err
		}
	} else if err := CheckExisting(dir); err != nil {
		return "", err
	}

	content, err := templatesFS.ReadFile("templates/" + FileName(format) + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to read %s template: %w", format, err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The scaffold must load cleanly with the same loader the scan uses
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is not a valid config: %w", path, err)
	}

	return path, nil
}

// handleForce removes an existing config file if --force was specified
func handleForce(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// PrintSuccess prints the success message for a created config file
func PrintSuccess(w io.Writer, path string) {
	fmt.Fprintf(w, "\n✅ Created %s\n", path)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Adjust the OCR language and worker count for your machine")
	fmt.Fprintln(w, "  2. Run 'credscan <mangadir> <outdir>' to scan your library")
}
