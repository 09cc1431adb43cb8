package preflight

import (
	"context"
	"strings"

	"batchproc/internal/config"
	"batchproc/internal/process"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Advisory bool
	Detail   string
}

// RunAll checks every directory the queued units report, plus the ntfy
// endpoint when one is configured.
func RunAll(ctx context.Context, cfg *config.Config, units []process.Process) []Result {
	var results []Result
	seen := make(map[string]bool)
	for _, unit := range units {
		reporter, ok := unit.(process.PathReporter)
		if !ok {
			continue
		}
		for _, req := range reporter.RequiredPaths() {
			if strings.TrimSpace(req.Path) == "" {
				continue
			}
			key := req.Path + "|" + boolKey(req.Writable) + boolKey(req.MayCreate)
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, CheckRequirement(unit.Name(), req))
		}
	}

	if cfg != nil && strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		check := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
		check.Advisory = true
		results = append(results, check)
	}
	return results
}

// CheckRequirement dispatches a unit path requirement to the matching check.
func CheckRequirement(unitName string, req process.PathRequirement) Result {
	label := req.Label
	if label == "" {
		label = unitName
	}
	if req.MayCreate {
		if _, err := statDir(req.Path); err != nil {
			return CheckCreatable(label, req.Path)
		}
	}
	return CheckDirectoryAccess(label, req.Path, req.Writable)
}

// Failed returns the non-advisory checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Advisory {
			failed = append(failed, result)
		}
	}
	return failed
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
