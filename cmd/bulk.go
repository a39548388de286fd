package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/risk-analyzer/internal/model"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Score a list of URLs, one per line",
	Long:  "Reads URLs one per line from --file or stdin. Blank lines and lines starting with # are ignored.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")
		asJSON, _ := cmd.Flags().GetBool("json")

		raw, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		urls, err := parseURLList(strings.NewReader(string(raw)))
		if err != nil {
			return err
		}

		env, err := initScanEnv(ctx, "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ScanBulk(ctx, urls)
		if err != nil {
			return eris.Wrap(err, "bulk scan")
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		formatBulk(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	bulkCmd.Flags().String("file", "", "file with one URL per line (default stdin)")
	bulkCmd.Flags().Bool("json", false, "print the full result as JSON")
	rootCmd.AddCommand(bulkCmd)
}

// parseURLList reads one URL per line, skipping blanks and # comments.
func parseURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrap(sc.Err(), "read url list")
}

// formatBulk writes one row per item followed by the summary.
func formatBulk(out io.Writer, res *model.BulkResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCORE\tLABEL\tINPUT\tNOTE")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-----\t----")
	for _, it := range res.Results {
		score, note := "-", it.Error
		if it.OverallScore != nil {
			score = fmt.Sprintf("%d", *it.OverallScore)
			note = topIndicator(it.Result)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", score, it.Label, it.ScannedInput, note)
	}
	_ = w.Flush()

	s := res.Summary
	_, _ = fmt.Fprintf(out, "\n%d scanned, %d errors, avg %d, highest %d (safe %d / suspicious %d / dangerous %d)\n",
		s.Scanned, s.Errors, s.AvgScore, s.HighestRisk,
		s.Distribution.Safe, s.Distribution.Suspicious, s.Distribution.Dangerous)
}

func topIndicator(res *model.ScanResult) string {
	if res == nil || len(res.Indicators) == 0 {
		return ""
	}
	return res.Indicators[0].Name
}
