package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/credscan/internal/filter"
	"github.com/dyluth/credscan/pkg/ledger"
)

// Follow streams matches published to the client's run until ctx is done.
// Records rejected by criteria are skipped. Decoding errors are reported to
// warn and do not end the stream.
func Follow(ctx context.Context, client *ledger.Client, criteria *filter.Criteria, format OutputFormat, w, warn io.Writer) error {
	sub, err := client.SubscribeMatches(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case rec, ok := <-events:
			if !ok {
				return nil
			}
			if criteria != nil && !criteria.Matches(rec) {
				continue
			}
			if err := writeFollowed(w, rec, format); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(warn, "⚠️  %v\n", err)
		}
	}
}

func writeFollowed(w io.Writer, rec *ledger.MatchRecord, format OutputFormat) error {
	if format == OutputFormatJSONL {
		return FormatJSONL(w, []*ledger.MatchRecord{rec})
	}
	_, err := fmt.Fprintf(w, "%03d  %-10s score %-5s %s  %s\n",
		rec.Sequence, rec.File, formatScore(rec.Score), strings.Join(rec.Found, ","), rec.Archive)
	return err
}
