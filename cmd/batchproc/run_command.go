package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"batchproc/internal/catalog"
	"batchproc/internal/config"
	"batchproc/internal/console"
	"batchproc/internal/driver"
	"batchproc/internal/logging"
	"batchproc/internal/notifications"
	"batchproc/internal/preflight"
	"batchproc/internal/process"
)

var errQueueHalted = errors.New("queue halted")

const durationPrecision = time.Millisecond

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run [kind:section...]",
		Short: "Run the process queue until it drains or halts",
		Long: `Run builds one unit per queue entry and starts them in order. With no
arguments the [[queue]] entries from the configuration are used; otherwise
each argument names a process kind and the [jobs.<section>] it reads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			entries := cfg.Queue
			if len(args) > 0 {
				if entries, err = parseUnitArgs(args); err != nil {
					return err
				}
			}
			units, err := buildUnits(cfg, catalog.Default(), entries)
			if err != nil {
				return err
			}

			lock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			out := cmd.OutOrStdout()
			printer := ctx.newPrinter(out)
			printer.Banner("batchproc", version)

			if cfg.Driver.Preflight && !skipPreflight {
				if err := runPreflight(cmd.Context(), cfg, processes(units), printer); err != nil {
					return err
				}
			}

			report, err := runQueue(cmd.Context(), ctx, printer, processes(units))
			printReport(printer, report)
			if err != nil {
				return err
			}
			switch report.Halt {
			case driver.HaltDrained, driver.HaltEmpty:
				return nil
			default:
				return fmt.Errorf("%w: %s", errQueueHalted, report.Halt)
			}
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory access checks before starting")
	return cmd
}

// acquireRunLock keeps two queue runs from sharing a log directory.
func acquireRunLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another batchproc run is already in progress")
	}
	return lock, nil
}

// runQueue wires a driver to the console, history, and notifications, then
// runs units to halt.
func runQueue(ctx context.Context, cmdCtx *commandContext, printer *console.Printer, units []process.Process) (driver.Report, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return driver.Report{}, err
	}
	drv, cleanup, err := newDriver(cmdCtx, cfg, printer)
	if err != nil {
		return driver.Report{}, err
	}
	defer cleanup()

	if err := drv.Enqueue(units...); err != nil {
		return driver.Report{}, err
	}
	return drv.StartNext(ctx)
}

func newDriver(cmdCtx *commandContext, cfg *config.Config, printer *console.Printer) (*driver.Driver, func(), error) {
	logger, err := cmdCtx.fileLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := cmdCtx.openHistory()
	if err != nil {
		return nil, nil, err
	}

	opts := driver.Options{
		Logger:            logger,
		Sink:              printer,
		Notifier:          notifications.NewService(cfg),
		ObserveExceptions: cfg.Driver.ObserveExceptions,
	}
	cleanup := func() {}
	if store != nil {
		opts.Recorder = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close history store", logging.Error(err))
			}
		}
	}
	return driver.New(opts), cleanup, nil
}

func runPreflight(ctx context.Context, cfg *config.Config, units []process.Process, printer *console.Printer) error {
	results := preflight.RunAll(ctx, cfg, units)
	for _, result := range results {
		kind := console.StatusOK
		switch {
		case result.Passed:
		case result.Advisory:
			kind = console.StatusWarn
		default:
			kind = console.StatusError
		}
		printer.Status(result.Name, kind, result.Detail)
	}
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, result := range failed {
		names[i] = result.Name
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(names, ", "))
}

func printReport(printer *console.Printer, report driver.Report) {
	if report.Halt == driver.HaltEmpty {
		printer.Status("Queue", console.StatusInfo, "Queue is empty")
		return
	}
	if report.Halt == "" {
		return
	}
	printer.Status("Run", console.StatusInfo, report.RunID)
	printer.Status("Processed", console.StatusInfo, fmt.Sprintf("%d of %d started", report.Processed(), len(report.Units)))
	if report.Remaining > 0 {
		printer.Status("Not started", console.StatusWarn, fmt.Sprintf("%d", report.Remaining))
	}

	kind := console.StatusOK
	detail := fmt.Sprintf("drained in %s", report.Duration.Round(durationPrecision))
	if report.Halt != driver.HaltDrained {
		kind = console.StatusError
		detail = string(report.Halt)
		if last, ok := report.Last(); ok {
			detail = fmt.Sprintf("%s at %s (%s)", report.Halt, last.Process, last.Outcome())
		}
	}
	printer.Status("Queue", kind, detail)
}
