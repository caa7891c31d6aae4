package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dyluth/credscan/internal/catalog"
	"github.com/dyluth/credscan/internal/filter"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/dyluth/credscan/internal/resolver"
	"github.com/dyluth/credscan/pkg/ledger"
	"github.com/spf13/cobra"
)

var (
	listOutputFormat string
	listMinScore     float64
	listTerm         string
	listSince        string
	listUntil        string
	listRun          string
	listFollow       bool
)

var listCmd = &cobra.Command{
	Use:   "list <outdir>",
	Short: "List saved credit pages with filtering",
	Long: `List the matches saved in <outdir>, or in the Redis match ledger.

Sources:
  <outdir>  - Read the NNN.<ext>.json sidecars (default)
  --run     - Read the ledger entries of one run (needs --redis-url or ledger.redis_url)

Output Formats:
  table - Human-readable table with sequence, score, file, terms and text
  jsonl - Line-delimited JSON, one match per line

Filters (ANDed together):
  --min-score - Only matches scoring at least this much
  --term      - Only matches where this lexicon term was found
  --since     - Only matches saved after this time (duration or RFC3339)
  --until     - Only matches saved before this time

Examples:
  # Everything in ./credits
  credscan list ./credits

  # High scorers mentioning a typesetter, as JSONL for jq
  credscan list ./credits --min-score 4 --term typeset --output jsonl

  # Follow a running scan through the ledger
  credscan list ./credits --redis-url redis://localhost:6379/0 --run <run-id> --follow`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "table", "Output format: table or jsonl")
	listCmd.Flags().Float64Var(&listMinScore, "min-score", 0, "Show matches scoring at least this much")
	listCmd.Flags().StringVar(&listTerm, "term", "", "Show matches where this lexicon term was found")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show matches after time (duration or RFC3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Show matches before time (duration or RFC3339)")
	listCmd.Flags().StringVar(&listRun, "run", "", "Ledger run ID or unique prefix (requires --redis-url)")
	listCmd.Flags().BoolVarP(&listFollow, "follow", "f", false, "Keep printing new ledger matches as they are saved")
	rootCmd.AddCommand(listCmd)
}

// listOptions are the parsed list flags
type listOptions struct {
	outDir   string
	format   catalog.OutputFormat
	criteria filter.Criteria
	redisURL string
	runID    string
	follow   bool
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := catalog.ParseFormat(listOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl"})
	}

	since, until, err := filter.ParseRange(listSince, listUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), []string{"Use a duration like '2h' or an RFC3339 time like '2025-10-29T13:00:00Z'"})
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return list(ctx, listOptions{
		outDir: args[0],
		format: format,
		criteria: filter.Criteria{
			MinScore: listMinScore,
			Term:     listTerm,
			SinceMs:  since,
			UntilMs:  until,
		},
		redisURL: cfg.Ledger.RedisURL,
		runID:    listRun,
		follow:   listFollow,
	}, printer.Out, os.Stderr)
}

func list(ctx context.Context, opts listOptions, w, warn io.Writer) error {
	useLedger := opts.runID != "" || opts.follow
	if useLedger && opts.redisURL == "" {
		return printer.Error(
			"ledger not configured",
			"--run and --follow read from the Redis match ledger.",
			[]string{"Add --redis-url redis://host:6379/0"},
		)
	}

	if !useLedger {
		entries, err := catalog.Load(opts.outDir, warn)
		if err != nil {
			return printer.Error("cannot read output directory", err.Error(), []string{"Check that the scan wrote to this directory"})
		}
		records := opts.criteria.Apply(catalog.Records(entries))
		return catalog.Write(w, records, opts.format, opts.outDir)
	}

	client, err := openLedger(ctx, opts.redisURL, opts.runID)
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := catalog.ListFromLedger(ctx, client)
	if err != nil {
		return printer.Error("cannot list ledger matches", err.Error(), nil)
	}
	source := fmt.Sprintf("run %s", client.RunID())
	if err := catalog.Write(w, opts.criteria.Apply(records), opts.format, source); err != nil {
		return err
	}

	if opts.follow {
		return catalog.Follow(ctx, client, &opts.criteria, opts.format, w, warn)
	}
	return nil
}

// openLedger connects to the ledger for runID, which may be a unique prefix.
// Without a run ID the known runs are listed in the error.
func openLedger(ctx context.Context, url, runID string) (*ledger.Client, error) {
	// The listing client never writes, so any non-empty run ID will do
	lister, err := ledger.NewClientFromURL(url, "-")
	if err != nil {
		return nil, printer.Error("invalid Redis URL", err.Error(), []string{"Use the form redis://host:6379/0"})
	}
	defer lister.Close()

	if err := lister.Ping(ctx); err != nil {
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to the match ledger: %v", err),
			map[string]string{"Redis URL": url},
			[]string{"Check that Redis is running"},
		)
	}

	if runID == "" {
		runs, err := lister.Runs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		explanation := "The ledger holds no runs yet."
		if len(runs) > 0 {
			explanation = "Known runs:\n  " + strings.Join(runs, "\n  ")
		}
		return nil, printer.Error("--run is required with --redis-url", explanation, []string{"Pass one of the run IDs:\n  --run <run-id>"})
	}

	full, err := resolver.ResolveRunID(ctx, lister, runID)
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		switch {
		case errors.As(err, &ambiguous):
			return nil, printer.Error(
				fmt.Sprintf("ambiguous run ID '%s'", runID),
				"Matching runs:\n"+resolver.FormatAmbiguous(ambiguous),
				[]string{"Use a longer prefix"},
			)
		case resolver.IsNotFoundError(err):
			return nil, printer.Error(
				fmt.Sprintf("run '%s' not found", runID),
				"No run in the ledger has this ID.",
				[]string{fmt.Sprintf("List the known runs:\n  credscan list <outdir> --redis-url %s", url)},
			)
		default:
			return nil, printer.Error("invalid run ID", err.Error(), nil)
		}
	}

	client, err := ledger.NewClientFromURL(url, full)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return client, nil
}
