package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"batchproc/internal/events"
	"batchproc/internal/logging"
	"batchproc/internal/notifications"
	"batchproc/internal/process"
)

// StartNext runs the queue until it drains or a unit fails. It returns a
// fault raised by a unit with no exception subscriber unchanged, after
// halting. An empty queue halts immediately without starting anything.
func (d *Driver) StartNext(ctx context.Context) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	switch d.state {
	case StateHalted:
		reason := d.halt
		d.mu.Unlock()
		return Report{Halt: reason}, ErrHalted
	case StateRunning:
		d.mu.Unlock()
		return Report{}, ErrBusy
	}
	empty := len(d.queue) == 0
	d.mu.Unlock()

	if empty {
		d.setHalted(HaltEmpty)
		d.logger.Info("queue empty; nothing to start",
			logging.String(logging.FieldEventType, "queue_empty"),
		)
		return Report{Halt: HaltEmpty}, nil
	}

	report := Report{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, report.RunID)
	runLogger := logging.WithContext(ctx, d.logger)
	began := time.Now()

	finish := func(reason HaltReason) {
		report.Halt = reason
		report.Remaining = d.Len()
		report.Duration = time.Since(began)
		d.setHalted(reason)
	}

	if err := ctx.Err(); err != nil {
		finish(HaltCanceled)
		runLogger.Warn("queue run canceled before start",
			logging.String(logging.FieldEventType, "queue_canceled"),
			logging.Int("remaining", report.Remaining),
			logging.Error(err),
		)
		return report, err
	}

	runLogger.Info("queue run started",
		logging.String(logging.FieldEventType, "queue_start"),
		logging.Int("queued", d.Len()),
	)
	d.publish(ctx, notifications.EventQueueStarted, notifications.Payload{
		"runID": report.RunID,
		"count": d.Len(),
	})

	for sequence := 1; ; sequence++ {
		if err := ctx.Err(); err != nil {
			finish(HaltCanceled)
			runLogger.Warn("queue run canceled",
				logging.String(logging.FieldEventType, "queue_canceled"),
				logging.Int("remaining", report.Remaining),
				logging.Error(err),
			)
			return report, err
		}

		unit, ok := d.dequeue()
		if !ok {
			finish(HaltDrained)
			runLogger.Info("queue drained",
				logging.String(logging.FieldEventType, "queue_drained"),
				logging.Int("processed", report.Processed()),
				logging.Duration("duration", report.Duration),
			)
			d.publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
				"processed": report.Processed(),
				"duration":  report.Duration,
			})
			return report, nil
		}

		d.setState(StateRunning)
		unitCtx := logging.WithProcess(ctx, unit.Name(), sequence)
		result, startErr := d.runUnit(unitCtx, unit, sequence)
		result.RunID = report.RunID
		report.Units = append(report.Units, result)
		d.record(unitCtx, result)

		if startErr != nil {
			finish(HaltFault)
			d.logHalt(unitCtx, result, report.Remaining)
			d.publish(ctx, notifications.EventError, notifications.Payload{
				"context": unit.Name(),
				"error":   startErr,
			})
			return report, startErr
		}

		if !result.Succeeded() {
			reason := HaltFailed
			switch {
			case result.Completed:
			case result.Fault != nil:
				reason = HaltFault
			default:
				reason = HaltIncomplete
			}
			finish(reason)
			d.logHalt(unitCtx, result, report.Remaining)
			d.publish(ctx, notifications.EventQueueHalted, notifications.Payload{
				"process":   result.Process,
				"result":    result.Outcome(),
				"message":   haltMessage(result),
				"remaining": report.Remaining,
			})
			return report, nil
		}

		if d.Len() > 0 {
			d.setState(StateIdle)
		}
	}
}

// runUnit subscribes to unit for exactly the span of its Start call.
func (d *Driver) runUnit(ctx context.Context, unit process.Process, sequence int) (UnitResult, error) {
	name := unit.Name()
	logger := logging.WithContext(ctx, d.logger)
	result := UnitResult{
		Sequence:  sequence,
		Process:   name,
		StartedAt: time.Now(),
	}

	var faulted bool
	cancels := []func(){
		unit.SubscribeChange(func(sender string, change events.Change) {
			d.sink.Change(sender, change)
			logger.Debug("process change",
				logging.String(logging.FieldEventType, "process_change"),
				logging.String(logging.FieldCategory, change.Category.String()),
				logging.String("message", change.Message),
			)
		}),
		unit.SubscribeCompletion(func(sender string, completion events.Completion) {
			if result.Completed || faulted {
				logging.WarnWithContext(logger, "extra completion ignored", "duplicate_completion",
					logging.String(logging.FieldResult, completion.Result.String()),
					logging.String("message", completion.Message),
					logging.String(logging.FieldErrorHint, "a process must complete exactly once per start"),
					logging.String(logging.FieldImpact, "completion does not affect the queue"),
				)
				d.sink.Change(sender, events.NewChange(events.CategoryWarning,
					fmt.Sprintf("ignored extra completion %s", completion.Result)))
				return
			}
			result.Completed = true
			result.Result = completion.Result
			result.Message = completion.Message
			d.sink.Completion(sender, completion)
		}),
	}
	if d.observe {
		cancels = append(cancels, unit.SubscribeException(func(sender string, err error) {
			if result.Fault == nil {
				result.Fault = err
			}
			if !result.Completed {
				faulted = true
			}
			logging.ErrorWithContext(logger, "process raised exception", "process_exception",
				logging.Error(err),
			)
			d.sink.Change(sender, events.NewChange(events.CategoryException, err.Error()))
		}))
	}
	defer func() {
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}()

	if aware, ok := unit.(process.LoggerAware); ok {
		aware.SetLogger(logger)
	}
	logger.Info("process started",
		logging.String(logging.FieldEventType, "process_start"),
	)
	d.sink.UnitStarting(name, sequence)

	err := unit.Start(ctx)
	result.FinishedAt = time.Now()
	if err != nil {
		if result.Fault == nil {
			result.Fault = err
		}
		return result, err
	}
	logger.Info("process completed",
		logging.String(logging.FieldEventType, "process_complete"),
		logging.String(logging.FieldResult, result.Outcome()),
		logging.String("message", result.Message),
		logging.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (d *Driver) logHalt(ctx context.Context, result UnitResult, remaining int) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "queue_halted"),
		logging.String(logging.FieldResult, result.Outcome()),
		logging.Int("remaining", remaining),
	}
	if result.Message != "" {
		attrs = append(attrs, logging.String("message", result.Message))
	}
	if result.Fault != nil {
		attrs = append(attrs, logging.Error(result.Fault))
	}
	logging.WithContext(ctx, d.logger).Warn("queue halted", logging.Args(attrs...)...)
}

func (d *Driver) record(ctx context.Context, result UnitResult) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordUnit(ctx, result); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "failed to record unit result", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history is missing this unit"),
		)
	}
}

func (d *Driver) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator is not notified"),
		)
	}
}

func haltMessage(result UnitResult) string {
	if result.Message != "" {
		return result.Message
	}
	if result.Fault != nil {
		return result.Fault.Error()
	}
	if !result.Completed {
		return "process returned without completing"
	}
	return ""
}
