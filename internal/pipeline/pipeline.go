// Package pipeline drives a scan: it walks the archives under a root, fans
// every page of an archive out to the OCR engine through a bounded task group
// and hands results to the output writer in the order they complete.
//
// Archives are processed one at a time. Within an archive at most Workers OCR
// invocations run concurrently; once that many are in flight the dispatcher
// blocks until one finishes. A single collector goroutine passes qualifying
// results to the writer, which assigns sequence numbers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/dyluth/credscan/internal/archive"
	"github.com/dyluth/credscan/internal/locator"
	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/ocr"
	"github.com/dyluth/credscan/internal/scorer"
	"github.com/dyluth/credscan/pkg/ledger"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the per-archive OCR concurrency when none is configured.
const DefaultWorkers = 4

// Saver persists qualifying pages. *output.Writer implements it.
type Saver interface {
	Save(ctx context.Context, page archive.Page, res scorer.Result, source string) (*ledger.MatchRecord, error)
}

// PageSource is an opened archive. *archive.Reader implements it.
type PageSource interface {
	Pages() iter.Seq2[archive.Page, error]
	Close() error
}

// Opener opens the archive at path for page extraction.
type Opener func(path string, opts archive.Options) (PageSource, error)

// OpenArchive is the default Opener.
func OpenArchive(path string, opts archive.Options) (PageSource, error) {
	r, err := archive.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Coordinator wires the pipeline stages together. The zero value is not
// usable: Engine and Writer are required.
type Coordinator struct {
	Engine    ocr.Engine
	Writer    Saver
	Threshold float64
	Workers   int
	Lang      string

	// Archive controls how entries are detected and read.
	Archive archive.Options

	// Extractor opens archives; nil means OpenArchive.
	Extractor Opener

	// Sniffer classifies files found under the scan root.
	Sniffer mediatype.Sniffer

	Events Events
	Logger *slog.Logger
}

// ArchiveStats summarises one archive.
type ArchiveStats struct {
	Archive       string
	Pages         int // pages dispatched to the engine
	PageFailures  int // extraction and OCR failures
	Matches       int // pages persisted
	WriteFailures int
	Elapsed       time.Duration
}

// RunStats summarises a whole run.
type RunStats struct {
	Archives       int
	FailedArchives int
	Pages          int
	PageFailures   int
	Matches        int
	WriteFailures  int
	Elapsed        time.Duration
}

func (s *RunStats) add(a ArchiveStats) {
	s.Archives++
	s.Pages += a.Pages
	s.PageFailures += a.PageFailures
	s.Matches += a.Matches
	s.WriteFailures += a.WriteFailures
}

// result is what a task hands to the collector.
type result struct {
	page    archive.Page
	score   scorer.Result
	err     error
	extract bool // err came from extraction, not OCR
}

// Run processes every archive under root, one after another.
// Only an invalid root or context cancellation end the run early; archive,
// page and write failures are reported through Events and counted.
func (c *Coordinator) Run(ctx context.Context, root string) (RunStats, error) {
	start := time.Now()
	var stats RunStats

	archives, err := locator.Locate(root, c.Sniffer)
	if err != nil {
		return stats, err
	}

	for path, err := range archives {
		if ctxErr := ctx.Err(); ctxErr != nil {
			stats.Elapsed = time.Since(start)
			return stats, ctxErr
		}
		if err != nil {
			c.logger().Info("skipping unreadable directory", "path", path, "error", err)
			c.events().ArchiveFailed(path, err)
			continue
		}

		as, err := c.ProcessArchive(ctx, path)
		if as.Archive != "" {
			stats.add(as)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				stats.Elapsed = time.Since(start)
				return stats, ctxErr
			}
			stats.FailedArchives++
		}
	}

	stats.Elapsed = time.Since(start)
	c.logger().Info("run complete",
		"archives", stats.Archives,
		"failed_archives", stats.FailedArchives,
		"pages", stats.Pages,
		"matches", stats.Matches,
		"elapsed", stats.Elapsed)
	return stats, ctx.Err()
}

// ProcessArchive runs every page of the archive at path through OCR and
// scoring, persisting those that reach the threshold. It returns once every
// dispatched page has been collected, including on cancellation.
//
// An archive that cannot be opened yields an error wrapping
// archive.ErrArchiveRead and empty stats; page-level failures are not errors.
func (c *Coordinator) ProcessArchive(ctx context.Context, path string) (ArchiveStats, error) {
	if c.Engine == nil || c.Writer == nil {
		return ArchiveStats{}, errors.New("pipeline: coordinator requires an engine and a writer")
	}

	start := time.Now()
	log := c.logger().With("archive", path)

	r, err := c.extractor()(path, c.Archive)
	if err != nil {
		log.Info("skipping archive", "error", err)
		c.events().ArchiveFailed(path, err)
		return ArchiveStats{}, err
	}
	defer r.Close()

	c.events().ArchiveStarted(path)
	log.Debug("archive opened")

	stats := ArchiveStats{Archive: path}
	results := make(chan result)
	collected := make(chan ArchiveStats, 1)
	go func() {
		collected <- c.collect(ctx, path, results)
	}()

	var g errgroup.Group
	g.SetLimit(c.workers())

	for page, err := range r.Pages() {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			results <- result{page: page, err: err, extract: true}
			continue
		}

		stats.Pages++
		// Blocks while the group is at its limit.
		g.Go(func() error {
			text, err := c.Engine.Recognize(ctx, page.Data, c.lang())
			if err != nil {
				results <- result{page: page, err: err}
				return nil
			}
			results <- result{page: page, score: scorer.Score(text)}
			return nil
		})
	}

	// Tasks never return errors; page failures travel through results.
	_ = g.Wait()
	close(results)
	cs := <-collected

	stats.PageFailures = cs.PageFailures
	stats.Matches = cs.Matches
	stats.WriteFailures = cs.WriteFailures
	stats.Elapsed = time.Since(start)

	log.Debug("archive done",
		"pages", stats.Pages,
		"matches", stats.Matches,
		"page_failures", stats.PageFailures,
		"elapsed", stats.Elapsed)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("interrupted while processing %s: %w", path, err)
	}
	return stats, nil
}

// collect consumes results in completion order until the channel closes.
func (c *Coordinator) collect(ctx context.Context, path string, results <-chan result) ArchiveStats {
	var stats ArchiveStats
	for res := range results {
		if res.err != nil {
			if ctx.Err() != nil {
				// Engines killed by cancellation are not page failures.
				continue
			}
			stats.PageFailures++
			msg := "ocr failed"
			if res.extract {
				msg = "failed to extract page"
			}
			// Shown to the user through Events; logged for the record only.
			c.logger().Info(msg, "archive", path, "entry", res.page.Name, "error", res.err)
			c.events().PageFailed(path, res.page.Name, res.err)
			continue
		}

		c.logger().Debug("page scored",
			"archive", path,
			"entry", res.page.Name,
			"score", res.score.Score,
			"found", res.score.Found)

		if !scorer.Qualifies(res.score.Score, c.Threshold) {
			continue
		}

		rec, err := c.Writer.Save(ctx, res.page, res.score, path)
		if err != nil {
			stats.WriteFailures++
			c.logger().Info("failed to save match", "archive", path, "entry", res.page.Name, "error", err)
			c.events().WriteFailed(path, res.page.Name, err)
			continue
		}
		stats.Matches++
		c.logger().Info("match saved", "file", rec.File, "sequence", rec.Sequence, "score", rec.Score)
		c.events().MatchSaved(rec)
	}
	return stats
}

func (c *Coordinator) extractor() Opener {
	if c.Extractor == nil {
		return OpenArchive
	}
	return c.Extractor
}

func (c *Coordinator) workers() int {
	if c.Workers < 1 {
		return DefaultWorkers
	}
	return c.Workers
}

func (c *Coordinator) lang() string {
	if c.Lang == "" {
		return ocr.DefaultLanguage
	}
	return c.Lang
}

func (c *Coordinator) events() Events {
	if c.Events == nil {
		return NopEvents{}
	}
	return c.Events
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
