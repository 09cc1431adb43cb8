package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"batchproc/internal/catalog"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the configured process queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueCheckCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured queue entries in run order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Queue) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			cat := catalog.Default()
			rows := make([][]string, 0, len(cfg.Queue))
			for i, entry := range cfg.Queue {
				name := "-"
				status := "ok"
				if unit, err := buildUnit(cfg, cat, entry); err != nil {
					status = err.Error()
				} else {
					name = unit.Name()
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), entry.Kind, entry.Section, name, status})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Kind", "Section", "Process", "Status"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newQueueCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks for the configured queue without starting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			units, err := buildUnits(cfg, catalog.Default(), cfg.Queue)
			if err != nil {
				return err
			}
			printer := ctx.newPrinter(cmd.OutOrStdout())
			if err := runPreflight(cmd.Context(), cfg, processes(units), printer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preflight passed for %d queued processes\n", len(units))
			return nil
		},
	}
}
