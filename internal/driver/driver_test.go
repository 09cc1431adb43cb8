package driver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"batchproc/internal/driver"
	"batchproc/internal/events"
	"batchproc/internal/process"
)

func TestStartNextRunsEveryUnitOnceInOrder(t *testing.T) {
	var order []string
	var units []*scriptedUnit
	var queue []process.Process
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		unit := newUnit(name, func(_ context.Context, u *scriptedUnit) error {
			order = append(order, u.Name())
			return u.RaiseCompletion(events.ResultSuccess, "")
		})
		units = append(units, unit)
		queue = append(queue, unit)
	}
	d := newDriver(t, driver.Options{}, queue...)

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if got := strings.Join(order, ""); got != "ABCDE" {
		t.Fatalf("unexpected start order %q", got)
	}
	for _, unit := range units {
		if unit.starts != 1 {
			t.Fatalf("unit %s started %d times", unit.Name(), unit.starts)
		}
	}
	if d.State() != driver.StateHalted || d.HaltReason() != driver.HaltDrained {
		t.Fatalf("expected halted/drained, got %s/%s", d.State(), d.HaltReason())
	}
	if d.Len() != 0 || report.Remaining != 0 {
		t.Fatalf("expected empty queue, len=%d remaining=%d", d.Len(), report.Remaining)
	}
	if report.Processed() != 5 {
		t.Fatalf("expected 5 processed, got %d", report.Processed())
	}
}

func TestNonSuccessResultHaltsChain(t *testing.T) {
	codes := []events.ResultCode{
		events.ResultGeneralFailure,
		events.ResultProcessTimeout,
		events.ResultUnexpectedShutdown,
		events.ResultLicenseCheckoutError,
	}
	for _, code := range codes {
		t.Run(code.String(), func(t *testing.T) {
			a := succeed("A")
			b := completeWith("B", code, "stopped")
			c := succeed("C")
			notifier := &recordingNotifier{}
			d := newDriver(t, driver.Options{Notifier: notifier}, a, b, c)

			report, err := d.StartNext(context.Background())
			if err != nil {
				t.Fatalf("StartNext: %v", err)
			}
			if c.starts != 0 {
				t.Fatalf("C must never start, started %d times", c.starts)
			}
			if d.HaltReason() != driver.HaltFailed {
				t.Fatalf("expected failed halt, got %s", d.HaltReason())
			}
			if got := d.Pending(); len(got) != 1 || got[0] != "C" {
				t.Fatalf("expected C to remain queued, got %v", got)
			}
			last, ok := report.Last()
			if !ok || last.Process != "B" || last.Result != code {
				t.Fatalf("unexpected last unit %+v", last)
			}
			if notifier.last["result"] != code.String() || notifier.last["remaining"] != 1 {
				t.Fatalf("unexpected halt payload %+v", notifier.last)
			}
		})
	}
}

func TestUnobservedFaultPropagatesUnchanged(t *testing.T) {
	boom := errors.New("geoprocessing engine crashed")
	a := newUnit("A", func(_ context.Context, u *scriptedUnit) error {
		u.RaiseLog("about to fail")
		return u.RaiseException(boom)
	})
	b := succeed("B")
	sink := &recordingSink{}
	d := newDriver(t, driver.Options{Sink: sink}, a, b)

	report, err := d.StartNext(context.Background())
	if err != boom {
		t.Fatalf("expected the original error value, got %v", err)
	}
	if b.starts != 0 {
		t.Fatalf("B must never start")
	}
	if d.State() != driver.StateHalted || d.HaltReason() != driver.HaltFault {
		t.Fatalf("expected halted/fault, got %s/%s", d.State(), d.HaltReason())
	}
	if report.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", report.Remaining)
	}
	if a.State() != process.StateFailed {
		t.Fatalf("expected faulted unit to be failed, got %s", a.State())
	}
}

func TestObservedFaultHaltsWithoutPropagating(t *testing.T) {
	boom := errors.New("disk vanished")
	a := newUnit("A", func(_ context.Context, u *scriptedUnit) error {
		return u.RaiseException(boom)
	})
	b := succeed("B")

	var received []error
	cancel := a.SubscribeException(func(_ string, err error) {
		received = append(received, err)
	})
	defer cancel()

	sink := &recordingSink{}
	d := newDriver(t, driver.Options{Sink: sink, ObserveExceptions: true}, a, b)

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("observed fault must not propagate, got %v", err)
	}
	if len(received) != 1 || received[0] != boom {
		t.Fatalf("subscriber should see the fault exactly once, got %v", received)
	}
	if b.starts != 0 {
		t.Fatalf("B must not auto-continue after a fault")
	}
	if d.HaltReason() != driver.HaltFault {
		t.Fatalf("expected fault halt, got %s", d.HaltReason())
	}
	if !strings.Contains(sink.String(), "change A EXCEPTION disk vanished") {
		t.Fatalf("expected fault relayed as EXCEPTION change, got:\n%s", sink)
	}
	last, _ := report.Last()
	if last.Fault != boom || last.Completed {
		t.Fatalf("unexpected unit result %+v", last)
	}
}

func TestExternallyObservedFaultStopsAdvancement(t *testing.T) {
	a := newUnit("A", func(_ context.Context, u *scriptedUnit) error {
		return u.RaiseException(errors.New("seen elsewhere"))
	})
	b := succeed("B")
	calls := 0
	a.SubscribeException(func(string, error) { calls++ })

	d := newDriver(t, driver.Options{}, a, b)
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
	if b.starts != 0 || d.HaltReason() != driver.HaltIncomplete {
		t.Fatalf("expected incomplete halt before B, got %s (B starts %d)", d.HaltReason(), b.starts)
	}
}

func TestFaultAfterSuccessCompletionStillAdvances(t *testing.T) {
	a := newUnit("A", func(_ context.Context, u *scriptedUnit) error {
		if err := u.RaiseCompletion(events.ResultSuccess, "done"); err != nil {
			return err
		}
		return u.RaiseException(errors.New("cleanup failed"))
	})
	b := succeed("B")
	d := newDriver(t, driver.Options{ObserveExceptions: true}, a, b)

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if b.starts != 1 || d.HaltReason() != driver.HaltDrained {
		t.Fatalf("expected B to run and queue to drain, got %s (B starts %d)", d.HaltReason(), b.starts)
	}
	if report.Units[0].Fault == nil {
		t.Fatalf("expected the late fault to be kept on the unit result")
	}
}

func TestCompletionAfterObservedFaultIgnored(t *testing.T) {
	a := &rawUnit{name: "A", run: func(u *rawUnit) error {
		for _, h := range u.exceptions {
			h(u.name, errors.New("broken"))
		}
		u.complete(events.ResultSuccess, "too late")
		return nil
	}}
	b := succeed("B")
	sink := &recordingSink{}
	d := newDriver(t, driver.Options{Sink: sink, ObserveExceptions: true}, a, b)

	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if b.starts != 0 || d.HaltReason() != driver.HaltFault {
		t.Fatalf("expected fault halt before B, got %s", d.HaltReason())
	}
	if strings.Contains(sink.String(), "completion A") {
		t.Fatalf("late completion must not be relayed as a completion:\n%s", sink)
	}
}

func TestDuplicateCompletionStartsNextUnitOnce(t *testing.T) {
	a := &rawUnit{name: "A", run: func(u *rawUnit) error {
		u.complete(events.ResultSuccess, "first")
		u.complete(events.ResultSuccess, "second")
		return nil
	}}
	b := succeed("B")
	sink := &recordingSink{}
	d := newDriver(t, driver.Options{Sink: sink}, a, b)

	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if b.starts != 1 {
		t.Fatalf("B should start exactly once, got %d", b.starts)
	}
	want := "change A WARNING ignored extra completion SUCCESS"
	if !strings.Contains(sink.String(), want) {
		t.Fatalf("expected %q in relay output:\n%s", want, sink)
	}
}

func TestDuplicateCompletionFirstResultWins(t *testing.T) {
	a := &rawUnit{name: "A", run: func(u *rawUnit) error {
		u.complete(events.ResultGeneralFailure, "bad input")
		u.complete(events.ResultSuccess, "never mind")
		return nil
	}}
	b := succeed("B")
	d := newDriver(t, driver.Options{}, a, b)

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if b.starts != 0 || d.HaltReason() != driver.HaltFailed {
		t.Fatalf("expected failed halt, got %s", d.HaltReason())
	}
	if report.Units[0].Message != "bad input" {
		t.Fatalf("expected first completion to be kept, got %+v", report.Units[0])
	}
}

func TestRoundTripRelayAndTransitions(t *testing.T) {
	unit := newUnit("WordCount", func(_ context.Context, u *scriptedUnit) error {
		u.RaiseLog("processing")
		return u.RaiseCompletion(events.ResultSuccess, "done")
	})
	sink := &recordingSink{}
	transitions := &transitionLog{}
	d := newDriver(t, driver.Options{Sink: sink, OnStateChange: transitions.record}, unit)

	if d.State() != driver.StateIdle {
		t.Fatalf("expected idle before start, got %s", d.State())
	}
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}

	want := strings.Join([]string{
		"start WordCount #1",
		"change WordCount INFO processing",
		"completion WordCount SUCCESS done",
	}, "\n")
	if sink.String() != want {
		t.Fatalf("unexpected relay output:\n%s\nwant:\n%s", sink, want)
	}
	if transitions.String() != "idle->running,running->halted" {
		t.Fatalf("unexpected transitions %s", transitions)
	}
	if d.Len() != 0 {
		t.Fatalf("expected empty queue")
	}
}

func TestMultiUnitTransitionsReturnToIdle(t *testing.T) {
	transitions := &transitionLog{}
	d := newDriver(t, driver.Options{OnStateChange: transitions.record}, succeed("A"), succeed("B"))
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	want := "idle->running,running->idle,idle->running,running->halted"
	if transitions.String() != want {
		t.Fatalf("expected %s, got %s", want, transitions)
	}
}

func TestEmptyQueueHaltsImmediately(t *testing.T) {
	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	recorder := &recordingRecorder{}
	transitions := &transitionLog{}
	d := driver.New(driver.Options{
		Sink:          sink,
		Notifier:      notifier,
		Recorder:      recorder,
		OnStateChange: transitions.record,
	})

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if report.Halt != driver.HaltEmpty || len(report.Units) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(sink.entries) != 0 || len(notifier.events) != 0 || len(recorder.results) != 0 {
		t.Fatalf("expected no notifications, got sink=%v notifier=%v recorder=%v", sink.entries, notifier.events, recorder.results)
	}
	if transitions.String() != "idle->halted" {
		t.Fatalf("unexpected transitions %s", transitions)
	}
}

func TestHaltedDriverRejectsWorkUntilReset(t *testing.T) {
	d := driver.New(driver.Options{})
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if err := d.Enqueue(succeed("late")); !errors.Is(err, driver.ErrHalted) {
		t.Fatalf("expected ErrHalted from Enqueue, got %v", err)
	}
	if _, err := d.StartNext(context.Background()); !errors.Is(err, driver.ErrHalted) {
		t.Fatalf("expected ErrHalted from StartNext, got %v", err)
	}

	if err := d.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	unit := succeed("again")
	if err := d.Enqueue(unit); err != nil {
		t.Fatalf("Enqueue after reset: %v", err)
	}
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext after reset: %v", err)
	}
	if unit.starts != 1 {
		t.Fatalf("expected unit to run after reset")
	}
}

func TestEnqueueValidation(t *testing.T) {
	d := driver.New(driver.Options{})
	if err := d.Enqueue(nil); !errors.Is(err, process.ErrNilProcess) {
		t.Fatalf("expected ErrNilProcess, got %v", err)
	}

	unit := succeed("once")
	if err := d.Enqueue(unit); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := d.Enqueue(unit); !errors.Is(err, driver.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	ran := succeed("ran")
	if err := ran.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Enqueue(ran); !errors.Is(err, driver.ErrNotStartable) {
		t.Fatalf("expected ErrNotStartable, got %v", err)
	}
	if got := d.Pending(); len(got) != 1 || got[0] != "once" {
		t.Fatalf("unexpected queue %v", got)
	}
}

func TestRelayUnsubscribedAfterUnitReturns(t *testing.T) {
	unit := succeed("A")
	sink := &recordingSink{}
	d := newDriver(t, driver.Options{Sink: sink, ObserveExceptions: true}, unit)
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	before := len(sink.entries)

	unit.RaiseLog("stale")
	if len(sink.entries) != before {
		t.Fatalf("relay still subscribed after unit returned:\n%s", sink)
	}
	boom := errors.New("after the fact")
	if err := unit.RaiseException(boom); err != boom {
		t.Fatalf("exception subscription leaked; RaiseException returned %v", err)
	}
}

func TestStartWhileRunningFailsFast(t *testing.T) {
	var reentry error
	unit := newUnit("A", func(ctx context.Context, u *scriptedUnit) error {
		reentry = u.Start(ctx)
		return u.RaiseCompletion(events.ResultSuccess, "")
	})
	d := newDriver(t, driver.Options{}, unit)
	if _, err := d.StartNext(context.Background()); err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if !errors.Is(reentry, process.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning on re-entry, got %v", reentry)
	}
	if unit.starts != 1 {
		t.Fatalf("re-entry must not run the body twice")
	}
}

func TestReturnWithoutCompletionHalts(t *testing.T) {
	silent := newUnit("silent", nil)
	next := succeed("next")
	d := newDriver(t, driver.Options{}, silent, next)

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if d.HaltReason() != driver.HaltIncomplete || next.starts != 0 {
		t.Fatalf("expected incomplete halt, got %s", d.HaltReason())
	}
	if report.Units[0].Outcome() != "INCOMPLETE" {
		t.Fatalf("unexpected outcome %s", report.Units[0].Outcome())
	}
}

func TestCanceledContextStopsBetweenUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := newUnit("first", func(_ context.Context, u *scriptedUnit) error {
		cancel()
		return u.RaiseCompletion(events.ResultSuccess, "")
	})
	second := succeed("second")
	d := newDriver(t, driver.Options{}, first, second)

	report, err := d.StartNext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if second.starts != 0 || report.Halt != driver.HaltCanceled || report.Remaining != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestAlreadyCanceledContextStartsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier := &recordingNotifier{}
	first := succeed("first")
	d := newDriver(t, driver.Options{Notifier: notifier}, first)

	report, err := d.StartNext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if first.starts != 0 || report.Halt != driver.HaltCanceled || report.Remaining != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("no notification expected for a run that never started, got %v", notifier.events)
	}
}

func TestRecorderAndNotifierSeeRun(t *testing.T) {
	recorder := &recordingRecorder{}
	notifier := &recordingNotifier{}
	d := newDriver(t, driver.Options{Recorder: recorder, Notifier: notifier},
		succeed("A"), completeWith("B", events.ResultSuccess, "ok"))

	report, err := d.StartNext(context.Background())
	if err != nil {
		t.Fatalf("StartNext: %v", err)
	}
	if len(recorder.results) != 2 {
		t.Fatalf("expected 2 recorded units, got %d", len(recorder.results))
	}
	for i, result := range recorder.results {
		if result.RunID == "" || result.RunID != report.RunID {
			t.Fatalf("unit %d has run id %q, want %q", i, result.RunID, report.RunID)
		}
		if result.Sequence != i+1 {
			t.Fatalf("unit %d has sequence %d", i, result.Sequence)
		}
		if result.FinishedAt.Before(result.StartedAt) {
			t.Fatalf("unit %d finished before it started", i)
		}
	}
	if got := len(notifier.events); got != 2 || notifier.events[0] != "queue_started" || notifier.events[1] != "queue_completed" {
		t.Fatalf("unexpected notifications %v", notifier.events)
	}
	if notifier.last["processed"] != 2 {
		t.Fatalf("unexpected completion payload %+v", notifier.last)
	}
}
