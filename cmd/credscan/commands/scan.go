package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/credscan/internal/config"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/spf13/cobra"
)

func runScan(cmd *cobra.Command, args []string) error {
	// With no arguments, show help
	if len(args) == 0 {
		return cmd.Help()
	}
	if len(args) == 1 {
		return printer.Error(
			"missing output directory",
			"Both a manga directory and an output directory are required.",
			[]string{"credscan <mangadir> <outdir>"},
		)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scan(ctx, cfg, args[0], args[1], os.Stderr)
}

// scan runs a single pass over root and prints a summary.
func scan(ctx context.Context, cfg *config.Config, root, outDir string, stderr io.Writer) error {
	s, err := openSession(ctx, cfg, root, outDir, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.coordinator.Run(ctx, root)
	printer.Summary(stats, outDir)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Warning("Interrupted; %d match(es) saved before stopping\n", stats.Matches)
			return err
		}
		return printer.Error("scan failed", err.Error(), nil)
	}

	return nil
}
