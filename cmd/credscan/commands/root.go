package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd scans a manga directory when given <mangadir> <outdir> and
// otherwise hosts the subcommands.
var rootCmd = &cobra.Command{
	Use:   "credscan <mangadir> <outdir>",
	Short: "credscan - find scanlation credit pages in comic archives",
	Long: `credscan walks a directory of comic archives (.zip/.cbz), runs OCR on
every page and saves the pages that look like scanlation credit pages.

Each saved page is written as NNN.<ext> next to a NNN.<ext>.json sidecar
holding the score, the recognised text and the lexicon terms found.

Pages are processed concurrently within an archive (--workers); numbering
follows the order in which pages finish and has no gaps.

Examples:
  # Scan a library with 8 OCR workers
  credscan ~/manga ./credits -w 8

  # Japanese OCR, stricter threshold, keep numbering from a previous run
  credscan ~/manga ./credits --lang jpn --threshold 3 --resume`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runScan,
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	addGlobalFlags(rootCmd)
	addScanFlags(rootCmd)
}
