// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/textextract/internal/ledger"
	"github.com/pdiddy/textextract/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversion outcomes from the ledger",
	Long: `History lists the most recent document outcomes recorded by convert runs
that had --ledger set. Output is a table, YAML, or JSON.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 50, "maximum number of entries")
	historyCmd.Flags().String("outcome", "", "filter by outcome: converted, ocr, skipped, failed")
	historyCmd.Flags().String("path", "", "filter by document path")
	historyCmd.Flags().String("format", "table", "output format: table, yaml, or json")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("ledger")
	if path == "" {
		return fmt.Errorf("no ledger configured: pass --ledger or set ledger in the config file")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	outcome, _ := cmd.Flags().GetString("outcome")
	docPath, _ := cmd.Flags().GetString("path")
	format, _ := cmd.Flags().GetString("format")

	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), ledger.Query{
		Limit:   limit,
		Outcome: types.Outcome(outcome),
		Path:    docPath,
	})
	if err != nil {
		return err
	}
	return writeHistory(cmd.OutOrStdout(), format, entries)
}

func writeHistory(w io.Writer, format string, entries []ledger.Entry) error {
	switch format {
	case "yaml":
		return ledger.WriteYAML(w, entries)
	case "json":
		return ledger.WriteJSON(w, entries)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tPROCESSED\tOUTCOME\tWORDS\tPATH\tERROR")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
				e.RunID, e.ProcessedAt.Format("2006-01-02 15:04:05"), e.Outcome, e.Words, e.Path, e.Error)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml, or json", format)
	}
}
