package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"batchproc/internal/history"
)

var errHistoryDisabled = errors.New("run history is disabled ([history] enabled = false)")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded unit outcomes",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent unit outcomes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer store.Close()

			var records []history.Record
			if id := strings.TrimSpace(runID); id != "" {
				records, err = store.ByRun(cmd.Context(), id)
			} else {
				if limit <= 0 {
					limit = cfg.History.ListLimit
				}
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No recorded runs")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "#", "Process", "Outcome", "Message", "Started", "Duration"},
				historyRows(records),
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows to show (defaults to history.list_limit)")
	cmd.Flags().StringVar(&runID, "run", "", "Show every unit of one run")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded unit outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history records\n", removed)
			return nil
		},
	}
}

func historyRows(records []history.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		message := record.Message
		if record.Error != "" {
			message = record.Error
		}
		rows = append(rows, []string{
			shortRunID(record.RunID),
			strconv.Itoa(record.Sequence),
			record.Process,
			record.Outcome,
			truncate(message, 48),
			record.StartedAt.Local().Format(time.DateTime),
			record.Duration().Round(durationPrecision).String(),
		})
	}
	return rows
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
