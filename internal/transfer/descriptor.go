package transfer

import (
	"fmt"
	"path/filepath"
	"strings"

	"batchproc/internal/config"
	"batchproc/internal/process"
)

// Method selects how a descriptor moves its data.
type Method string

const (
	MethodCopy           Method = "COPY"
	MethodTruncateAppend Method = "TRUNCATE_APPEND"
)

// Descriptor is one queued transfer.
type Descriptor struct {
	Name            string
	OriginName      string
	OriginWorkspace string
	TargetName      string
	TargetWorkspace string
	Method          Method
	OverrideOutput  bool
}

// OriginPath is the file read by the transfer.
func (d Descriptor) OriginPath() string {
	return filepath.Join(d.OriginWorkspace, d.OriginName)
}

// TargetPath is the file written by the transfer.
func (d Descriptor) TargetPath() string {
	return filepath.Join(d.TargetWorkspace, d.TargetName)
}

// Label names the descriptor in messages.
func (d Descriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.OriginName
}

// ParseDescriptors reads the "transfers" array of a job section.
func ParseDescriptors(opts process.Options) ([]Descriptor, error) {
	raw, ok := opts["transfers"]
	if !ok || raw == nil {
		return nil, nil
	}

	var tables []map[string]any
	switch v := raw.(type) {
	case []map[string]any:
		tables = v
	case []any:
		for i, item := range v {
			table, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("transfers[%d]: expected a table, got %T", i, item)
			}
			tables = append(tables, table)
		}
	default:
		return nil, fmt.Errorf("transfers: expected an array of tables, got %T", raw)
	}

	descriptors := make([]Descriptor, 0, len(tables))
	for i, table := range tables {
		d, err := parseDescriptor(process.Options(table))
		if err != nil {
			return nil, fmt.Errorf("transfers[%d]: %w", i, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func parseDescriptor(opts process.Options) (Descriptor, error) {
	var d Descriptor
	d.Name, _ = opts.String("name", "Name")
	d.OriginName, _ = opts.String("origin_name", "OriginName")
	d.TargetName, _ = opts.String("target_name", "TargetName")
	method, _ := opts.String("method", "TransferMethod", "Method")
	d.Method = Method(strings.ToUpper(method))

	override, _, err := opts.Bool("override_output", "OverrideOutput")
	if err != nil {
		return Descriptor{}, err
	}
	d.OverrideOutput = override

	origin, _ := opts.String("origin_workspace", "OriginWorkspace")
	target, _ := opts.String("target_workspace", "TargetWorkspace")
	if d.OriginName == "" || origin == "" || target == "" {
		return Descriptor{}, fmt.Errorf("origin_name, origin_workspace and target_workspace are required")
	}
	if d.TargetName == "" {
		d.TargetName = d.OriginName
	}
	if d.OriginWorkspace, err = config.ExpandPath(origin); err != nil {
		return Descriptor{}, err
	}
	if d.TargetWorkspace, err = config.ExpandPath(target); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
