package driver

import (
	"fmt"
	"log/slog"
	"sync"

	"batchproc/internal/logging"
	"batchproc/internal/notifications"
	"batchproc/internal/process"
)

// Options configures a Driver. Every field is optional.
type Options struct {
	Logger   *slog.Logger
	Sink     Sink
	Recorder Recorder
	Notifier notifications.Service
	// ObserveExceptions subscribes the driver to unit faults. Observed faults
	// are relayed as EXCEPTION changes and halt the run; unobserved ones are
	// returned from StartNext.
	ObserveExceptions bool
	// OnStateChange is called after every driver state transition.
	OnStateChange func(from, to State)
}

// Driver sequences process units.
type Driver struct {
	logger        *slog.Logger
	sink          Sink
	recorder      Recorder
	notifier      notifications.Service
	observe       bool
	onStateChange func(from, to State)

	mu    sync.Mutex
	queue []process.Process
	state State
	halt  HaltReason
}

// New constructs an idle driver with an empty queue.
func New(opts Options) *Driver {
	sink := opts.Sink
	if sink == nil {
		sink = discardSink{}
	}
	return &Driver{
		logger:        logging.NewComponentLogger(opts.Logger, "driver"),
		sink:          sink,
		recorder:      opts.Recorder,
		notifier:      opts.Notifier,
		observe:       opts.ObserveExceptions,
		onStateChange: opts.OnStateChange,
		state:         StateIdle,
	}
}

// Enqueue appends units in order. Units must not have run yet and may only
// be queued once.
func (d *Driver) Enqueue(units ...process.Process) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateHalted {
		return ErrHalted
	}
	for _, unit := range units {
		if unit == nil {
			return process.ErrNilProcess
		}
		if state := unit.State(); state != process.StateNotStarted {
			return fmt.Errorf("%w: %s is %s", ErrNotStartable, unit.Name(), state)
		}
		for _, queued := range d.queue {
			if queued == unit {
				return fmt.Errorf("%w: %s", ErrDuplicate, unit.Name())
			}
		}
		d.queue = append(d.queue, unit)
	}
	return nil
}

// Len returns the number of units waiting to start.
func (d *Driver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Pending lists queued unit names in execution order.
func (d *Driver) Pending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.queue))
	for i, unit := range d.queue {
		names[i] = unit.Name()
	}
	return names
}

// Queued returns a copy of the queue.
func (d *Driver) Queued() []process.Process {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]process.Process, len(d.queue))
	copy(out, d.queue)
	return out
}

// State reports the driver state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// HaltReason reports why the driver halted, or "" while it has not.
func (d *Driver) HaltReason() HaltReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.halt
}

// Reset returns a halted driver to Idle so a new run can be queued. Units
// left over from the previous run stay queued.
func (d *Driver) Reset() error {
	d.mu.Lock()
	from := d.state
	if from == StateRunning {
		d.mu.Unlock()
		return ErrBusy
	}
	d.state = StateIdle
	d.halt = ""
	d.mu.Unlock()
	d.notifyState(from, StateIdle)
	return nil
}

func (d *Driver) dequeue() (process.Process, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil, false
	}
	unit := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return unit, true
}

func (d *Driver) setState(to State) {
	d.mu.Lock()
	from := d.state
	d.state = to
	d.mu.Unlock()
	d.notifyState(from, to)
}

func (d *Driver) setHalted(reason HaltReason) {
	d.mu.Lock()
	from := d.state
	d.state = StateHalted
	d.halt = reason
	d.mu.Unlock()
	d.notifyState(from, StateHalted)
}

func (d *Driver) notifyState(from, to State) {
	if from == to || d.onStateChange == nil {
		return
	}
	d.onStateChange(from, to)
}
