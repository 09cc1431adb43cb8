package driver_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"batchproc/internal/driver"
	"batchproc/internal/events"
	"batchproc/internal/notifications"
	"batchproc/internal/process"
)

// scriptedUnit is a Base-backed unit whose run body is supplied by the test.
type scriptedUnit struct {
	*process.Base
	starts int
	script func(ctx context.Context, u *scriptedUnit) error
}

func newUnit(name string, script func(ctx context.Context, u *scriptedUnit) error) *scriptedUnit {
	return &scriptedUnit{Base: process.NewBase(name), script: script}
}

func succeed(name string) *scriptedUnit {
	return newUnit(name, func(_ context.Context, u *scriptedUnit) error {
		return u.RaiseCompletion(events.ResultSuccess, "")
	})
}

func completeWith(name string, result events.ResultCode, message string) *scriptedUnit {
	return newUnit(name, func(_ context.Context, u *scriptedUnit) error {
		return u.RaiseCompletion(result, message)
	})
}

func (u *scriptedUnit) Start(ctx context.Context) error {
	if err := u.BeginRun(); err != nil {
		return err
	}
	defer u.EndRun()
	u.starts++
	if u.script == nil {
		return nil
	}
	return u.script(ctx, u)
}

func (u *scriptedUnit) Stop() { u.MarkStopped() }

// rawUnit implements the contract by hand so tests can break it.
type rawUnit struct {
	name        string
	running     bool
	starts      int
	changes     []events.ChangeHandler
	completions []events.CompletionHandler
	exceptions  []events.ExceptionHandler
	run         func(u *rawUnit) error
}

func (u *rawUnit) Name() string    { return u.name }
func (u *rawUnit) IsRunning() bool { return u.running }
func (u *rawUnit) Stop()           { u.running = false }

func (u *rawUnit) State() process.State {
	switch {
	case u.running:
		return process.StateRunning
	case u.starts > 0:
		return process.StateCompleted
	default:
		return process.StateNotStarted
	}
}

func (u *rawUnit) SubscribeChange(h events.ChangeHandler) func() {
	u.changes = append(u.changes, h)
	return func() { u.changes = nil }
}

func (u *rawUnit) SubscribeCompletion(h events.CompletionHandler) func() {
	u.completions = append(u.completions, h)
	return func() { u.completions = nil }
}

func (u *rawUnit) SubscribeException(h events.ExceptionHandler) func() {
	u.exceptions = append(u.exceptions, h)
	return func() { u.exceptions = nil }
}

func (u *rawUnit) complete(result events.ResultCode, message string) {
	for _, h := range u.completions {
		h(u.name, events.NewCompletion(result, message))
	}
}

func (u *rawUnit) Start(context.Context) error {
	u.running = true
	u.starts++
	defer func() { u.running = false }()
	return u.run(u)
}

// recordingSink captures relayed notifications in arrival order.
type recordingSink struct {
	entries []string
}

func (s *recordingSink) UnitStarting(name string, sequence int) {
	s.entries = append(s.entries, fmt.Sprintf("start %s #%d", name, sequence))
}

func (s *recordingSink) Change(sender string, change events.Change) {
	s.entries = append(s.entries, fmt.Sprintf("change %s %s %s", sender, change.Category, change.Message))
}

func (s *recordingSink) Completion(sender string, completion events.Completion) {
	s.entries = append(s.entries, fmt.Sprintf("completion %s %s %s", sender, completion.Result, completion.Message))
}

func (s *recordingSink) String() string {
	return strings.Join(s.entries, "\n")
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.last = payload
	return nil
}

type recordingRecorder struct {
	results []driver.UnitResult
}

func (r *recordingRecorder) RecordUnit(_ context.Context, result driver.UnitResult) error {
	r.results = append(r.results, result)
	return nil
}

type transitionLog struct {
	steps []string
}

func (l *transitionLog) record(from, to driver.State) {
	l.steps = append(l.steps, from.String()+"->"+to.String())
}

func (l *transitionLog) String() string {
	return strings.Join(l.steps, ",")
}

func newDriver(t *testing.T, opts driver.Options, units ...process.Process) *driver.Driver {
	t.Helper()
	d := driver.New(opts)
	if err := d.Enqueue(units...); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return d
}
