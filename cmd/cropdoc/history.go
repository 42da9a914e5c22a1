package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/cropdoc/internal/config"
	"github.com/Brownie44l1/cropdoc/internal/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent predictions",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", history.DefaultLimit, "Number of predictions to show")
	cmd.Flags().Bool("json", false, "Print JSON instead of tables")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.History {
		return errors.New("history is disabled (HISTORY=false)")
	}

	store, err := history.Open(cfg.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	counts, err := store.Counts(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"records": records, "counts": counts})
	}

	writeHistory(cmd.OutOrStdout(), records, counts)
	return nil
}

func writeHistory(w io.Writer, records []history.Record, counts map[string]int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No predictions yet.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Class", "Confidence", "ID"})
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Class,
			strconv.FormatFloat(float64(r.Confidence)*100, 'f', 1, 64) + "%",
			r.ID,
		})
	}
	table.Render()

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	totals := tablewriter.NewWriter(w)
	totals.SetHeader([]string{"Class", "Total"})
	for _, class := range classes {
		totals.Append([]string{class, strconv.Itoa(counts[class])})
	}
	totals.Render()
}
