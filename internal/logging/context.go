package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldProcess is the key for the name of the unit being run.
	FieldProcess = "process"
	// FieldSequence is the 1-based position of a unit within a driver run.
	FieldSequence = "sequence"
	// FieldRunID identifies one driver run end to end.
	FieldRunID = "run_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldResult carries a completion result code.
	FieldResult = "result"
	// FieldCategory carries a change notification category.
	FieldCategory = "category"
)

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	processKey  contextKey = "process"
	sequenceKey contextKey = "sequence"
)

// WithRunID annotates ctx with the driver run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok && v != ""
}

// WithProcess annotates ctx with the running unit and its position.
func WithProcess(ctx context.Context, name string, sequence int) context.Context {
	if name == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, processKey, name)
	return context.WithValue(ctx, sequenceKey, sequence)
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if name, ok := ctx.Value(processKey).(string); ok && name != "" {
		fields = append(fields, slog.String(FieldProcess, name))
		if seq, ok := ctx.Value(sequenceKey).(int); ok && seq > 0 {
			fields = append(fields, slog.Int(FieldSequence, seq))
		}
	}
	return fields
}

// WithContext returns a logger augmented with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
