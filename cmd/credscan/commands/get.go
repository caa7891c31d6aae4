package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dyluth/credscan/internal/catalog"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/spf13/cobra"
)

var getRun string

var getCmd = &cobra.Command{
	Use:   "get <outdir> <seq>",
	Short: "Show one saved credit page as JSON",
	Long: `Show the sidecar of match <seq> from <outdir> as pretty-printed JSON.

With --run (and a ledger configured through --redis-url), the full ledger record (including the source
archive and entry) is shown instead.

Examples:
  credscan get ./credits 7
  credscan get ./credits 7 --redis-url redis://localhost:6379/0 --run <run-id>`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getRun, "run", "", "Ledger run ID or unique prefix (requires --redis-url)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	seq, err := strconv.Atoi(args[1])
	if err != nil || seq < 1 {
		return printer.Error(
			"invalid sequence number",
			fmt.Sprintf("'%s' is not a positive number.", args[1]),
			[]string{"Use the number from the file name, e.g. 7 for 007.png"},
		)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	return get(cmd.Context(), args[0], seq, cfg.Ledger.RedisURL, getRun, printer.Out)
}

func get(ctx context.Context, outDir string, seq int, url, runID string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if runID != "" {
		if url == "" {
			return printer.Error(
				"ledger not configured",
				"--run reads from the Redis match ledger.",
				[]string{"Add --redis-url redis://host:6379/0"},
			)
		}

		client, err := openLedger(ctx, url, runID)
		if err != nil {
			return err
		}
		defer client.Close()

		rec, err := catalog.GetFromLedger(ctx, client, seq)
		if err != nil {
			return notFoundOr(err, seq, fmt.Sprintf("run %s", client.RunID()))
		}
		return catalog.FormatSingleJSON(w, rec)
	}

	entry, err := catalog.Get(outDir, seq)
	if err != nil {
		return notFoundOr(err, seq, outDir)
	}
	return catalog.FormatSingleJSON(w, entry)
}

func notFoundOr(err error, seq int, source string) error {
	if catalog.IsNotFound(err) {
		return printer.Error(
			fmt.Sprintf("match %03d not found", seq),
			fmt.Sprintf("No match with sequence number %d in %s.", seq, source),
			[]string{fmt.Sprintf("List the saved matches:\n  credscan list %s", source)},
		)
	}
	return printer.Error("cannot read match", err.Error(), nil)
}
