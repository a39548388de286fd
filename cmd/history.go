package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/risk-analyzer/internal/model"
	"github.com/sells-group/risk-analyzer/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded scans",
	Long:  "Commands for listing, viewing, and summarizing recorded scans.",
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent scans, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		label, _ := cmd.Flags().GetString("label")
		scanType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		recs, err := st.ListScans(ctx, store.ScanFilter{
			Label:    model.Label(label),
			ScanType: model.ScanType(scanType),
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "history list")
		}

		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No scans found.")
			return nil
		}

		formatScanList(cmd.OutOrStdout(), recs)
		return nil
	},
}

// -- history show --

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show one recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetScan(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

// -- history stats --

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate scan statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "history stats")
		}
		formatScanStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	historyListCmd.Flags().String("label", "", "filter by label (safe, suspicious, dangerous)")
	historyListCmd.Flags().String("type", "", "filter by scan type (url, email, qr)")
	historyListCmd.Flags().Int("limit", store.DefaultListLimit, "max number of scans to display")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}

// formatScanList writes a tabular list of scans to w.
func formatScanList(out io.Writer, recs []model.ScanRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tSCORE\tLABEL\tINPUT\tSCANNED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-----\t-----\t-------")

	for _, r := range recs {
		input := r.Input
		if len(input) > 40 {
			input = input[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.ScanType,
			r.OverallScore,
			r.Label,
			input,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatScanStats writes aggregate stats to w.
func formatScanStats(out io.Writer, s *store.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total scans:\t%d\n", s.Total)

	labels := make([]string, 0, len(s.ByLabel))
	for l := range s.ByLabel {
		labels = append(labels, string(l))
	}
	sort.Strings(labels)
	for _, l := range labels {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", l, s.ByLabel[model.Label(l)])
	}
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Avg score:\t%.1f\n", s.AvgScore)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
