package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"batchproc/internal/catalog"
	"batchproc/internal/config"
	"batchproc/internal/console"
	"batchproc/internal/driver"
)

var menuOptions = []string{"Quit", "LoadProcessQueue", "PrintProcessQueue", "StartProcessQueue"}

const (
	menuQuit = iota
	menuLoad
	menuPrint
	menuStart
)

func newMenuCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Build and run a process queue interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printer := ctx.newPrinter(out)
			printer.Banner("batchproc", version)

			drv, cleanup, err := newDriver(ctx, cfg, printer)
			if err != nil {
				return err
			}
			defer cleanup()

			session := &menuSession{
				cfg:      cfg,
				catalog:  catalog.Default(),
				driver:   drv,
				printer:  printer,
				prompter: console.NewPrompter(cmd.InOrStdin(), out),
				out:      out,
			}
			return session.loop(cmd.Context())
		},
	}
}

type menuSession struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	driver   *driver.Driver
	printer  *console.Printer
	prompter *console.Prompter
	out      io.Writer
}

func (m *menuSession) loop(ctx context.Context) error {
	for {
		choice, err := m.prompter.Choose("Select an option:", menuOptions)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case menuQuit:
			return nil
		case menuLoad:
			err = m.load()
		case menuPrint:
			m.print()
		case menuStart:
			err = m.start(ctx)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			m.printer.Status("Error", console.StatusError, err.Error())
		}
	}
}

func (m *menuSession) load() error {
	kinds := m.catalog.Kinds()
	kindIdx, err := m.prompter.Choose("Select a process kind:", kinds)
	if err != nil {
		return err
	}
	sections := m.cfg.SectionNames()
	if len(sections) == 0 {
		return errors.New("no [jobs.<name>] sections configured")
	}
	sectionIdx, err := m.prompter.Choose("Select a settings section:", sections)
	if err != nil {
		return err
	}

	unit, err := buildUnit(m.cfg, m.catalog, config.QueueEntry{Kind: kinds[kindIdx], Section: sections[sectionIdx]})
	if err != nil {
		return err
	}
	if m.driver.State() == driver.StateHalted {
		if err := m.driver.Reset(); err != nil {
			return err
		}
	}
	if err := m.driver.Enqueue(unit); err != nil {
		return err
	}
	m.printer.Status("Queued", console.StatusOK, fmt.Sprintf("%s (%d in queue)", unit.Name(), m.driver.Len()))
	return nil
}

func (m *menuSession) print() {
	queued := m.driver.Queued()
	if len(queued) == 0 {
		fmt.Fprintln(m.out, "Process queue is empty")
		return
	}
	rows := make([][]string, len(queued))
	for i, unit := range queued {
		rows[i] = []string{strconv.Itoa(i + 1), unit.Name(), unit.State().String()}
	}
	fmt.Fprintln(m.out, renderTable([]string{"#", "Process", "State"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
	fmt.Fprintf(m.out, "Queue count: %d\n", len(queued))
}

func (m *menuSession) start(ctx context.Context) error {
	if m.driver.State() == driver.StateHalted {
		if err := m.driver.Reset(); err != nil {
			return err
		}
	}
	if m.cfg.Driver.Preflight && m.driver.Len() > 0 {
		if err := runPreflight(ctx, m.cfg, m.driver.Queued(), m.printer); err != nil {
			return err
		}
	}

	lock, err := acquireRunLock(m.cfg)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	report, err := m.driver.StartNext(ctx)
	printReport(m.printer, report)
	return err
}
