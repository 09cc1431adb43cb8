package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"batchproc/internal/events"
)

var (
	// ErrAlreadyRunning is returned by Start when the unit is mid-run.
	ErrAlreadyRunning = errors.New("process already running")
	// ErrAlreadyCompleted is returned when a run tries to complete twice.
	ErrAlreadyCompleted = errors.New("process already completed this run")
	// ErrNotRunning is returned when a completion is raised outside a run.
	ErrNotRunning = errors.New("process not running")
	// ErrNilProcess rejects nil units.
	ErrNilProcess = errors.New("process is nil")
)

// State is the lifecycle position of a unit.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Subscriber exposes the publish/subscribe points of a unit. Every
// Subscribe call returns a cancel func that removes that one registration.
type Subscriber interface {
	SubscribeChange(events.ChangeHandler) (cancel func())
	SubscribeCompletion(events.CompletionHandler) (cancel func())
	SubscribeException(events.ExceptionHandler) (cancel func())
}

// Process is a named, runnable unit of work.
//
// Start runs the work synchronously and must raise exactly one completion
// before returning unless it fails with a fault. Calling Start on a running
// unit returns ErrAlreadyRunning. Stop marks the unit not running and clears
// whatever private work it still holds; it does not preempt Start.
type Process interface {
	Subscriber
	Name() string
	IsRunning() bool
	State() State
	Start(ctx context.Context) error
	Stop()
}

// LoggerAware units receive a logger scoped to their run before Start.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// PathRequirement names a directory a unit touches, for preflight checks.
// MayCreate marks directories the unit creates on demand; for those the
// nearest existing ancestor must be writable.
type PathRequirement struct {
	Label     string
	Path      string
	Writable  bool
	MayCreate bool
}

// PathReporter is implemented by units that can list their directories
// before they run.
type PathReporter interface {
	RequiredPaths() []PathRequirement
}
