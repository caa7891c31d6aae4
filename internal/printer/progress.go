package printer

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/dyluth/credscan/internal/pipeline"
	"github.com/dyluth/credscan/pkg/ledger"
)

// Progress reports pipeline events to the terminal.
// It implements pipeline.Events and is safe for concurrent use.
type Progress struct {
	mu     sync.Mutex
	outDir string
}

var _ pipeline.Events = (*Progress)(nil)

// NewProgress returns a terminal progress reporter for matches saved in outDir
func NewProgress(outDir string) *Progress {
	return &Progress{outDir: outDir}
}

func (p *Progress) ArchiveStarted(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Step("Scanning %s\n", path)
}

func (p *Progress) ArchiveFailed(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Warning("Skipping %s: %v\n", path, err)
}

func (p *Progress) PageFailed(archive, entry string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Warning("%s: %s: %v\n", filepath.Base(archive), entry, err)
}

func (p *Progress) MatchSaved(rec *ledger.MatchRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Success("Found %s/%s -> %s, score %.1f\n",
		filepath.Base(rec.Archive), rec.Entry, filepath.Join(p.outDir, rec.File), rec.Score)
}

func (p *Progress) WriteFailed(archive, entry string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	red.Fprintf(Out, "✗ Could not save %s from %s: %v\n", entry, filepath.Base(archive), err)
}

// Summary prints the totals for a finished run
func Summary(stats pipeline.RunStats, outDir string) {
	Println()
	Success("Scanned %d archive(s), %d page(s) in %s\n", stats.Archives, stats.Pages, stats.Elapsed.Round(time.Millisecond))
	Info("  Matches saved:    %d (in %s)\n", stats.Matches, outDir)
	if stats.FailedArchives > 0 {
		Info("  Archives skipped: %d\n", stats.FailedArchives)
	}
	if stats.PageFailures > 0 {
		Info("  Pages failed:     %d\n", stats.PageFailures)
	}
	if stats.WriteFailures > 0 {
		Info("  Writes failed:    %d\n", stats.WriteFailures)
	}
}
