package process

import (
	"sync"

	"batchproc/internal/events"
)

type registration[T any] struct {
	id      uint64
	handler T
}

type registry[T any] struct {
	entries []registration[T]
}

func (r *registry[T]) add(id uint64, handler T) {
	r.entries = append(r.entries, registration[T]{id: id, handler: handler})
}

func (r *registry[T]) remove(id uint64) {
	for i, entry := range r.entries {
		if entry.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *registry[T]) snapshot() []T {
	if len(r.entries) == 0 {
		return nil
	}
	out := make([]T, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.handler
	}
	return out
}

// Base implements the subscription and emission half of the Process
// contract, plus the tagged run state.
type Base struct {
	name string

	mu          sync.Mutex
	state       State
	inRun       bool
	completed   bool
	faulted     bool
	nextID      uint64
	changes     registry[events.ChangeHandler]
	completions registry[events.CompletionHandler]
	exceptions  registry[events.ExceptionHandler]
}

// NewBase returns a Base for the named unit.
func NewBase(name string) *Base {
	return &Base{name: name}
}

// Name returns the identifier assigned at construction.
func (b *Base) Name() string {
	return b.name
}

// State returns the current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsRunning reports whether a run is in progress.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// BeginRun moves the unit into StateRunning. It fails fast with
// ErrAlreadyRunning while an earlier Start has not returned, including one
// that was stopped mid-flight.
func (b *Base) BeginRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inRun {
		return ErrAlreadyRunning
	}
	b.state = StateRunning
	b.inRun = true
	b.completed = false
	b.faulted = false
	return nil
}

// MarkStopped clears the running state without waiting for Start to
// return. A unit that already completed stays completed; otherwise it is
// failed until its run raises a completion.
func (b *Base) MarkStopped() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settle()
}

// EndRun closes the run opened by BeginRun. A unit that ends without a
// completion is recorded as failed.
func (b *Base) EndRun() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settle()
	b.inRun = false
}

func (b *Base) settle() {
	if b.state != StateRunning {
		return
	}
	if b.completed {
		b.state = StateCompleted
	} else {
		b.state = StateFailed
	}
}

// SubscribeChange registers a change handler and returns its cancel func.
func (b *Base) SubscribeChange(handler events.ChangeHandler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.changes.add(id, handler)
	return b.canceler(func() { b.changes.remove(id) })
}

// SubscribeCompletion registers a completion handler and returns its cancel func.
func (b *Base) SubscribeCompletion(handler events.CompletionHandler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.completions.add(id, handler)
	return b.canceler(func() { b.completions.remove(id) })
}

// SubscribeException registers an exception handler and returns its cancel func.
func (b *Base) SubscribeException(handler events.ExceptionHandler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.exceptions.add(id, handler)
	return b.canceler(func() { b.exceptions.remove(id) })
}

func (b *Base) canceler(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			remove()
		})
	}
}

// RaiseChange notifies every change subscriber.
func (b *Base) RaiseChange(category events.Category, message string) {
	b.mu.Lock()
	handlers := b.changes.snapshot()
	b.mu.Unlock()

	change := events.NewChange(category, message)
	for _, handler := range handlers {
		handler(b.name, change)
	}
}

// RaiseLog emits an INFO change.
func (b *Base) RaiseLog(message string) {
	b.RaiseChange(events.CategoryInfo, message)
}

// RaiseDebug emits a DEBUG change.
func (b *Base) RaiseDebug(message string) {
	b.RaiseChange(events.CategoryDebug, message)
}

// RaiseWarning emits a WARNING change.
func (b *Base) RaiseWarning(message string) {
	b.RaiseChange(events.CategoryWarning, message)
}

// RaiseCompletion ends the current run and notifies completion subscribers.
// Only the first completion of a run is delivered; later ones return
// ErrAlreadyCompleted. A run stopped by MarkStopped may still complete
// once. Outside a run, or after a fault, it returns ErrNotRunning.
func (b *Base) RaiseCompletion(result events.ResultCode, message string) error {
	b.mu.Lock()
	switch {
	case b.completed:
		b.mu.Unlock()
		return ErrAlreadyCompleted
	case !b.inRun || b.faulted:
		b.mu.Unlock()
		return ErrNotRunning
	}
	b.completed = true
	if result.Success() {
		b.state = StateCompleted
	} else {
		b.state = StateFailed
	}
	handlers := b.completions.snapshot()
	b.mu.Unlock()

	completion := events.NewCompletion(result, message)
	for _, handler := range handlers {
		handler(b.name, completion)
	}
	return nil
}

// RaiseException marks the run failed and hands err to exception
// subscribers, returning nil. With no subscriber attached it returns err
// unchanged for the caller to propagate.
func (b *Base) RaiseException(err error) error {
	if err == nil {
		return nil
	}
	b.mu.Lock()
	if b.inRun && !b.completed {
		b.state = StateFailed
		b.faulted = true
	}
	handlers := b.exceptions.snapshot()
	b.mu.Unlock()

	if len(handlers) == 0 {
		return err
	}
	for _, handler := range handlers {
		handler(b.name, err)
	}
	return nil
}
