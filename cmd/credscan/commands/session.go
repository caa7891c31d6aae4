package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dyluth/credscan/internal/archive"
	"github.com/dyluth/credscan/internal/config"
	"github.com/dyluth/credscan/internal/locator"
	"github.com/dyluth/credscan/internal/logging"
	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/ocr"
	"github.com/dyluth/credscan/internal/output"
	"github.com/dyluth/credscan/internal/pipeline"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/dyluth/credscan/pkg/ledger"
	"github.com/google/uuid"
)

// session holds everything one scan or watch run needs.
type session struct {
	cfg         *config.Config
	runID       string
	logger      *slog.Logger
	writer      *output.Writer
	coordinator *pipeline.Coordinator
	closers     []func() error
}

// openSession validates the input root, prepares the output directory and
// wires the pipeline. Errors are already printed for the user.
func openSession(ctx context.Context, cfg *config.Config, root, outDir string, stderr io.Writer) (*session, error) {
	s := &session{cfg: cfg, runID: uuid.New().String()}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, printer.Error("invalid log level", err.Error(), []string{"Use one of: debug, info, warn, error"})
	}
	logger, cleanup, err := logging.Setup(stderr, cfg.Log.File, level)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"cannot open log file",
			err.Error(),
			map[string]string{"Log file": cfg.Log.File},
			[]string{"Check the path and permissions, or drop --log-file"},
		)
	}
	s.closers = append(s.closers, cleanup)
	s.logger = logging.ForRun(logger, s.runID)

	sniffer := mediatype.Sniffer{Content: cfg.Scan.SniffContent}

	// Root problems end the run before anything is written.
	if _, err := locator.Locate(root, sniffer); err != nil {
		s.Close()
		return nil, rootError(root, err)
	}

	if err := output.PrepareDir(outDir); err != nil {
		if errors.Is(err, output.ErrNotDirectory) {
			printer.Warning("Output path '%s' exists and is not a directory; matches cannot be saved\n", outDir)
		} else {
			s.Close()
			return nil, printer.Error("cannot create output directory", err.Error(), []string{"Check the path and permissions"})
		}
	}

	engine, err := ocr.New(ocr.Settings{
		Engine:    cfg.OCR.Engine,
		Command:   cfg.OCR.Command,
		Args:      cfg.OCR.Args,
		Timeout:   cfg.OCR.Timeout.Std(),
		RateLimit: cfg.OCR.RateLimit,
	})
	if err != nil {
		s.Close()
		return nil, printer.Error("cannot start OCR engine", err.Error(), []string{
			"Use the external engine:\n  credscan --engine tesseract ...",
			"Rebuild with the in-process engine:\n  go build -tags gosseract ./cmd/credscan",
		})
	}

	var publisher output.Publisher
	if cfg.Ledger.RedisURL != "" {
		client, err := ledger.NewClientFromURL(cfg.Ledger.RedisURL, s.runID)
		if err != nil {
			s.Close()
			return nil, printer.Error("invalid Redis URL", err.Error(), []string{"Use the form redis://host:6379/0"})
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			s.Close()
			return nil, printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to the match ledger: %v", err),
				map[string]string{"Redis URL": cfg.Ledger.RedisURL},
				[]string{"Start Redis, or run without --redis-url"},
			)
		}
		s.closers = append(s.closers, client.Close)
		publisher = client
	}

	writer, err := output.NewWriter(outDir, output.Options{
		RunID:     s.runID,
		Resume:    cfg.Output.Resume,
		Publisher: publisher,
		Logger:    s.logger,
	})
	if err != nil {
		s.Close()
		return nil, printer.Error("cannot resume numbering", err.Error(), []string{"Run without --resume to start again at 001"})
	}
	s.writer = writer

	s.coordinator = &pipeline.Coordinator{
		Engine:    engine,
		Writer:    writer,
		Threshold: cfg.Scoring.Threshold,
		Workers:   cfg.Scan.Workers,
		Lang:      cfg.OCR.Lang,
		Archive:   archive.Options{Sniffer: sniffer, MaxPageBytes: cfg.Scan.MaxPageBytes},
		Sniffer:   sniffer,
		Events:    printer.NewProgress(outDir),
		Logger:    s.logger,
	}

	s.logger.Info("run started",
		"root", root,
		"output", outDir,
		"engine", engine.Name(),
		"workers", cfg.Scan.Workers,
		"lang", cfg.OCR.Lang,
		"threshold", cfg.Scoring.Threshold,
		"resume_from", writer.Count())

	return s, nil
}

// Close releases the ledger connection and log file.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// rootError turns locator root errors into user-facing messages.
func rootError(root string, err error) error {
	switch {
	case errors.Is(err, locator.ErrNotFound):
		return printer.Error(
			"manga directory not found",
			fmt.Sprintf("'%s' does not exist.", root),
			[]string{"Check the path and try again"},
		)
	case errors.Is(err, locator.ErrInvalidInput):
		return printer.Error(
			"invalid manga directory",
			fmt.Sprintf("'%s' is neither a directory nor a .zip/.cbz archive.", root),
			[]string{"Pass a directory of archives, or a single .cbz/.zip file"},
		)
	default:
		return printer.Error("cannot read manga directory", err.Error(), nil)
	}
}
