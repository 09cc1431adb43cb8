package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"batchproc/internal/events"
)

var (
	// ErrHalted is returned when the driver already reached its terminal state.
	ErrHalted = errors.New("driver halted")
	// ErrBusy is returned when StartNext is re-entered while a unit runs.
	ErrBusy = errors.New("driver already running")
	// ErrDuplicate rejects enqueueing a unit instance that is already queued.
	ErrDuplicate = errors.New("process already queued")
	// ErrNotStartable rejects units that already ran or are running.
	ErrNotStartable = errors.New("process is not in a startable state")
)

// State is the driver's position in its run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HaltReason explains why a run ended.
type HaltReason string

const (
	// HaltDrained means every unit reported SUCCESS.
	HaltDrained HaltReason = "drained"
	// HaltEmpty means StartNext found nothing to run.
	HaltEmpty HaltReason = "empty"
	// HaltFailed means a unit completed with a non-success result.
	HaltFailed HaltReason = "failed"
	// HaltFault means a unit raised a fault.
	HaltFault HaltReason = "fault"
	// HaltIncomplete means Start returned without a completion or fault.
	HaltIncomplete HaltReason = "incomplete"
	// HaltCanceled means the run context ended between units.
	HaltCanceled HaltReason = "canceled"
)

// Sink receives relayed notifications for display. It observes only; the
// driver never consults it when deciding transitions.
type Sink interface {
	UnitStarting(name string, sequence int)
	Change(sender string, change events.Change)
	Completion(sender string, completion events.Completion)
}

// Recorder persists unit outcomes.
type Recorder interface {
	RecordUnit(ctx context.Context, result UnitResult) error
}

// UnitResult summarizes one unit run.
type UnitResult struct {
	RunID      string
	Sequence   int
	Process    string
	Completed  bool
	Result     events.ResultCode
	Message    string
	Fault      error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the unit lets the queue advance. A fault
// raised after a SUCCESS completion does not undo it.
func (u UnitResult) Succeeded() bool {
	return u.Completed && u.Result.Success()
}

// Outcome renders the result for display and storage.
func (u UnitResult) Outcome() string {
	switch {
	case u.Completed:
		return u.Result.String()
	case u.Fault != nil:
		return "FAULT"
	default:
		return "INCOMPLETE"
	}
}

// Report describes a finished StartNext call.
type Report struct {
	RunID     string
	Units     []UnitResult
	Halt      HaltReason
	Remaining int
	Duration  time.Duration
}

// Processed counts units that completed successfully.
func (r Report) Processed() int {
	count := 0
	for _, unit := range r.Units {
		if unit.Succeeded() {
			count++
		}
	}
	return count
}

// Last returns the final unit that ran, if any.
func (r Report) Last() (UnitResult, bool) {
	if len(r.Units) == 0 {
		return UnitResult{}, false
	}
	return r.Units[len(r.Units)-1], true
}

type discardSink struct{}

func (discardSink) UnitStarting(string, int)             {}
func (discardSink) Change(string, events.Change)         {}
func (discardSink) Completion(string, events.Completion) {}
