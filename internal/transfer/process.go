package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"batchproc/internal/events"
	"batchproc/internal/fileutil"
	"batchproc/internal/logging"
	"batchproc/internal/process"
)

// Kind is the catalog key for this process.
const Kind = "transfer"

// Name is the unit name reported to subscribers.
const Name = "DataTransfer"

// Process moves queued descriptors one at a time.
type Process struct {
	*process.Base

	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending []Descriptor
	emptied bool
}

// New builds a transfer process from a job section. Descriptors come from
// its "transfers" array and timeout_seconds bounds the whole run.
func New(opts process.Options) (*Process, error) {
	descriptors, err := ParseDescriptors(opts)
	if err != nil {
		return nil, err
	}
	timeout, err := opts.Timeout()
	if err != nil {
		return nil, err
	}
	p := NewWithDescriptors(descriptors...)
	p.timeout = timeout
	return p, nil
}

// NewWithDescriptors builds a transfer process with a preloaded queue.
func NewWithDescriptors(descriptors ...Descriptor) *Process {
	p := &Process{
		Base:   process.NewBase(Name),
		logger: logging.NewNop(),
	}
	p.Add(descriptors...)
	return p
}

// SetLogger replaces the process logger.
func (p *Process) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	p.logger = logger
}

// Add appends descriptors to the private queue.
func (p *Process) Add(descriptors ...Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, descriptors...)
}

// Pending returns a copy of the descriptors not yet transferred.
func (p *Process) Pending() []Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Descriptor, len(p.pending))
	copy(out, p.pending)
	return out
}

// EmptyQueue drops every pending descriptor. A running transfer then ends
// with UNEXPECTED_SHUTDOWN after its current descriptor.
func (p *Process) EmptyQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	if p.IsRunning() {
		p.emptied = true
	}
}

// Stop drops every pending descriptor and marks the process not running.
// A running transfer then completes with SUCCESS after its current
// descriptor.
func (p *Process) Stop() {
	p.clear()
	p.MarkStopped()
}

// RequiredPaths lists origin workspaces as readable and target workspaces
// as writable.
func (p *Process) RequiredPaths() []process.PathRequirement {
	seen := make(map[string]bool)
	var out []process.PathRequirement
	for _, d := range p.Pending() {
		for _, req := range []process.PathRequirement{
			{Label: d.Label() + " origin", Path: d.OriginWorkspace},
			{Label: d.Label() + " target", Path: d.TargetWorkspace, Writable: true},
		} {
			key := fmt.Sprintf("%s|%t", req.Path, req.Writable)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, req)
		}
	}
	return out
}

// Start drains the private queue, then raises one completion. A failed
// file operation is raised as a fault and abandons the rest of the queue.
func (p *Process) Start(ctx context.Context) error {
	if err := p.BeginRun(); err != nil {
		return err
	}
	defer p.EndRun()
	p.mu.Lock()
	p.emptied = false
	p.mu.Unlock()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.RaiseLog("Data transfer process started.")
	transferred := 0
	for {
		if err := ctx.Err(); err != nil {
			p.clear()
			return p.RaiseCompletion(interruption(err, p.timeout))
		}
		d, ok, emptied := p.next()
		if emptied {
			return p.RaiseCompletion(events.ResultUnexpectedShutdown, "Transfer queue emptied before completion")
		}
		if !ok {
			break
		}
		if err := p.transfer(ctx, d); err != nil {
			p.clear()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return p.RaiseCompletion(interruption(ctxErr, p.timeout))
			}
			return p.RaiseException(err)
		}
		transferred++
	}

	p.logger.Info("transfers finished", logging.Int("transferred", transferred))
	p.Stop()
	return p.RaiseCompletion(events.ResultSuccess, "Data transfer process complete!")
}

func (p *Process) next() (Descriptor, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.emptied {
		return Descriptor{}, false, true
	}
	if len(p.pending) == 0 {
		return Descriptor{}, false, false
	}
	d := p.pending[0]
	p.pending = p.pending[1:]
	return d, true, false
}

func (p *Process) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
}

func (p *Process) transfer(ctx context.Context, d Descriptor) error {
	switch d.Method {
	case MethodCopy:
		return p.copy(ctx, d)
	case MethodTruncateAppend:
		return p.truncateAppend(ctx, d)
	default:
		p.RaiseWarning(fmt.Sprintf("Skipping %s: unknown transfer method %q", d.Label(), d.Method))
		return nil
	}
}

func (p *Process) copy(ctx context.Context, d Descriptor) error {
	target := d.TargetPath()
	p.RaiseLog(fmt.Sprintf("Copying %s", d.OriginName))
	return fileutil.WithLock(ctx, target, func() error {
		if _, err := os.Stat(target); err == nil {
			if d.OverrideOutput {
				p.RaiseLog(fmt.Sprintf("Deleting %s", d.TargetName))
				if err := os.Remove(target); err != nil {
					return fmt.Errorf("delete %s: %w", target, err)
				}
			} else {
				p.RaiseLog(fmt.Sprintf("Renaming %s to %s_OLD", d.TargetName, d.TargetName))
				if err := os.Rename(target, target+"_OLD"); err != nil {
					return fmt.Errorf("rename %s: %w", target, err)
				}
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", target, err)
		}
		if err := fileutil.CopyFileVerified(d.OriginPath(), target); err != nil {
			return fmt.Errorf("copy %s: %w", d.Label(), err)
		}
		p.RaiseLog(fmt.Sprintf("Copied %s to %s", d.OriginName, d.TargetWorkspace))
		return nil
	})
}

func (p *Process) truncateAppend(ctx context.Context, d Descriptor) error {
	target := d.TargetPath()
	if _, err := os.Stat(d.OriginPath()); err != nil {
		return fmt.Errorf("append %s: %w", d.Label(), err)
	}
	return fileutil.WithLock(ctx, target, func() error {
		p.RaiseLog(fmt.Sprintf("Truncating %s", d.TargetName))
		if err := os.Truncate(target, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("truncate %s: %w", target, err)
		}
		written, err := fileutil.AppendFile(d.OriginPath(), target)
		if err != nil {
			return fmt.Errorf("append %s: %w", d.Label(), err)
		}
		p.RaiseLog(fmt.Sprintf("Appended %d bytes from %s", written, d.OriginName))
		return nil
	})
}

func interruption(err error, timeout time.Duration) (events.ResultCode, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return events.ResultProcessTimeout, fmt.Sprintf("Transfer timed out after %s", timeout)
	}
	return events.ResultUnexpectedShutdown, "Transfer canceled"
}
