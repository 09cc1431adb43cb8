package main

import (
	"fmt"
	"strings"

	"batchproc/internal/catalog"
	"batchproc/internal/config"
	"batchproc/internal/process"
)

type queuedUnit struct {
	entry config.QueueEntry
	unit  process.Process
}

// parseUnitArgs turns "kind:section" arguments into queue entries.
func parseUnitArgs(args []string) ([]config.QueueEntry, error) {
	entries := make([]config.QueueEntry, 0, len(args))
	for _, arg := range args {
		kind, section, ok := strings.Cut(strings.TrimSpace(arg), ":")
		kind = strings.TrimSpace(kind)
		section = strings.TrimSpace(section)
		if !ok || kind == "" || section == "" {
			return nil, fmt.Errorf("invalid unit %q: expected kind:section", arg)
		}
		entries = append(entries, config.QueueEntry{Kind: kind, Section: section})
	}
	return entries, nil
}

func buildUnits(cfg *config.Config, cat *catalog.Catalog, entries []config.QueueEntry) ([]queuedUnit, error) {
	units := make([]queuedUnit, 0, len(entries))
	for i, entry := range entries {
		unit, err := buildUnit(cfg, cat, entry)
		if err != nil {
			return nil, fmt.Errorf("queue[%d]: %w", i, err)
		}
		units = append(units, queuedUnit{entry: entry, unit: unit})
	}
	return units, nil
}

func buildUnit(cfg *config.Config, cat *catalog.Catalog, entry config.QueueEntry) (process.Process, error) {
	section, err := cfg.Section(entry.Section)
	if err != nil {
		return nil, err
	}
	return cat.Build(entry.Kind, section)
}

func processes(units []queuedUnit) []process.Process {
	out := make([]process.Process, len(units))
	for i, u := range units {
		out[i] = u.unit
	}
	return out
}
