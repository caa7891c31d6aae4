package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/credscan/internal/config"
	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/dyluth/credscan/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <mangadir> <outdir>",
	Short: "Scan, then keep scanning archives as they arrive",
	Long: `Scan <mangadir> once, then watch it for new or rewritten archives.

An archive is scanned once its size has stopped changing for the settle
period (watch.settle in the config file, default 2s). Numbering continues
across the initial scan and every archive processed afterwards.

Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	addScanFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchAndScan(ctx, cfg, args[0], args[1], os.Stderr)
}

// watchAndScan registers the watches, runs the initial scan and then
// processes new archives until ctx is cancelled.
func watchAndScan(ctx context.Context, cfg *config.Config, root, outDir string, stderr io.Writer) error {
	s, err := openSession(ctx, cfg, root, outDir, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	// Watch first so nothing that lands during the initial scan is missed
	w, err := watch.New(root, watch.Options{
		Sniffer:   mediatype.Sniffer{Content: cfg.Scan.SniffContent},
		Settle:    cfg.Watch.Settle.Std(),
		Processor: s.coordinator,
		Logger:    s.logger,
	})
	if err != nil {
		return printer.Error(
			"cannot watch manga directory",
			err.Error(),
			[]string{fmt.Sprintf("Scan it once instead:\n  credscan %s %s", root, outDir)},
		)
	}

	stats, err := s.coordinator.Run(ctx, root)
	if err != nil {
		w.Close()
		printer.Summary(stats, outDir)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return printer.Error("scan failed", err.Error(), nil)
	}
	printer.Summary(stats, outDir)
	printer.Step("Watching %s for new archives (Ctrl-C to stop)\n", root)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return printer.Error("watch failed", err.Error(), nil)
	}

	printer.Success("Stopped watching (last sequence number: %03d)\n", s.writer.Count())
	return nil
}
