package wordcount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"batchproc/internal/config"
	"batchproc/internal/events"
	"batchproc/internal/fileutil"
	"batchproc/internal/logging"
	"batchproc/internal/process"
)

// Kind is the catalog key for this process.
const Kind = "wordcount"

// Name is the unit name reported to subscribers.
const Name = "WordCount"

var errStopped = errors.New("stop requested")

// Process counts words across the files of a directory.
type Process struct {
	*process.Base

	opts    process.Options
	logger  *slog.Logger
	stats   *DocumentStatistics
	stopped atomic.Bool
}

// New builds the process from its named options. Options are read when
// the process starts.
func New(opts process.Options) *Process {
	return &Process{
		Base:   process.NewBase(Name),
		opts:   opts,
		logger: logging.NewNop(),
		stats:  NewDocumentStatistics(),
	}
}

// SetLogger replaces the process logger.
func (p *Process) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	p.logger = logger
}

// Stats returns the statistics gathered by the last run.
func (p *Process) Stats() *DocumentStatistics {
	return p.stats
}

// RequiredPaths reports the output directory. The input directory is not
// listed because a missing one is an expected outcome.
func (p *Process) RequiredPaths() []process.PathRequirement {
	output, ok := p.opts.String("OutputPath", "output_path")
	if !ok {
		return nil
	}
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return nil
	}
	return []process.PathRequirement{{
		Label:     Name + " output",
		Path:      filepath.Dir(expanded),
		Writable:  true,
		MayCreate: true,
	}}
}

// Stop marks the process not running and asks Start to finish after the
// current file.
func (p *Process) Stop() {
	if p.IsRunning() {
		p.stopped.Store(true)
		p.MarkStopped()
	}
}

// Start runs the count and raises exactly one completion, or a fault.
func (p *Process) Start(ctx context.Context) error {
	if err := p.BeginRun(); err != nil {
		return err
	}
	defer p.EndRun()
	p.stopped.Store(false)
	p.stats = NewDocumentStatistics()

	filePath, outputPath, timeout, err := p.resolveOptions()
	if err != nil {
		return p.RaiseException(err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p.RaiseLog(fmt.Sprintf("Initializing project using %s as path", filePath))
	p.RaiseLog("processing files..")

	if err := p.processFiles(ctx, filePath); err != nil {
		if result, message, ok := interruption(err, timeout); ok {
			return p.RaiseCompletion(result, message)
		}
		return p.RaiseException(err)
	}

	if len(p.stats.WordCounts) > 0 {
		p.RaiseLog("Word counts: ")
		for _, wc := range p.stats.Ranked() {
			p.RaiseLog(fmt.Sprintf("%-15s %-5d", wc.Word, wc.Count))
		}
		if err := p.writeStats(ctx, outputPath); err != nil {
			return p.RaiseException(err)
		}
		p.RaiseLog(fmt.Sprintf("Statistics written to %s", outputPath))
	}
	p.Stop()
	return p.RaiseCompletion(events.ResultSuccess, "Process finished")
}

func (p *Process) resolveOptions() (string, string, time.Duration, error) {
	filePath, ok := p.opts.String("FilePath", "file_path")
	if !ok {
		return "", "", 0, fmt.Errorf("wordcount: FilePath option is required")
	}
	outputPath, ok := p.opts.String("OutputPath", "output_path")
	if !ok {
		return "", "", 0, fmt.Errorf("wordcount: OutputPath option is required")
	}
	var err error
	if filePath, err = config.ExpandPath(filePath); err != nil {
		return "", "", 0, err
	}
	if outputPath, err = config.ExpandPath(outputPath); err != nil {
		return "", "", 0, err
	}
	timeout, err := p.opts.Timeout()
	if err != nil {
		return "", "", 0, fmt.Errorf("wordcount: %w", err)
	}
	return filePath, outputPath, timeout, nil
}

func (p *Process) processFiles(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.RaiseDebug("No Directory found")
		return nil
	case errors.Is(err, fs.ErrPermission):
		p.RaiseDebug("ACCESS DENIED")
		return nil
	case err != nil:
		return fmt.Errorf("read directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	p.RaiseLog(fmt.Sprintf("%d Files found", len(files)))
	if len(files) == 0 {
		p.RaiseLog("No files found")
		return nil
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.stopped.Load() {
			return errStopped
		}
		p.RaiseLog(name)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrPermission) {
			p.RaiseDebug("ACCESS DENIED")
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		p.stats.AddDocument(name, Tokenize(string(data)))
	}
	p.logger.Debug("word count tallied",
		logging.Int("documents", p.stats.DocumentCount),
		logging.Int("distinct_words", len(p.stats.WordCounts)),
	)
	return nil
}

func (p *Process) writeStats(ctx context.Context, path string) error {
	data, err := json.MarshalIndent(p.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return fileutil.WithLock(ctx, path, func() error {
		if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("write statistics: %w", err)
		}
		return nil
	})
}

func interruption(err error, timeout time.Duration) (events.ResultCode, string, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return events.ResultProcessTimeout, fmt.Sprintf("Process timed out after %s", timeout), true
	case errors.Is(err, context.Canceled):
		return events.ResultUnexpectedShutdown, "Process canceled", true
	case errors.Is(err, errStopped):
		return events.ResultUnexpectedShutdown, "Process stopped before finishing", true
	default:
		return 0, "", false
	}
}
