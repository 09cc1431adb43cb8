// Package catalog maps process kinds to constructors.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"batchproc/internal/process"
	"batchproc/internal/transfer"
	"batchproc/internal/wordcount"
)

// ErrUnknownKind is returned for kinds with no registered factory.
var ErrUnknownKind = errors.New("not a valid process")

// Factory builds a unit from its job section.
type Factory func(opts process.Options) (process.Process, error)

// Catalog is a registry of process kinds.
type Catalog struct {
	factories map[string]Factory
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Default returns the catalog of built-in process kinds.
func Default() *Catalog {
	c := New()
	c.Register(wordcount.Kind, func(opts process.Options) (process.Process, error) {
		return wordcount.New(opts), nil
	})
	c.Register(transfer.Kind, func(opts process.Options) (process.Process, error) {
		return transfer.New(opts)
	})
	return c
}

// Register adds or replaces the factory for kind.
func (c *Catalog) Register(kind string, factory Factory) {
	c.factories[normalizeKind(kind)] = factory
}

// Kinds lists registered kinds in sorted order.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.factories))
	for kind := range c.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs a unit of kind from its section.
func (c *Catalog) Build(kind string, section map[string]any) (process.Process, error) {
	factory, ok := c.factories[normalizeKind(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	unit, err := factory(process.Options(section))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	return unit, nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
