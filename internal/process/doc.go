// Package process defines the contract every queued unit of work satisfies
// and a reusable Base that implements the notification half of it.
//
// A concrete process embeds *Base, calls BeginRun at the top of Start, and
// reports progress through RaiseLog/RaiseDebug/RaiseChange. Each run ends
// with exactly one RaiseCompletion, or with RaiseException when the work
// hits a fault. RaiseException hands the fault to exception subscribers and
// returns nil; with nobody listening it returns the fault unchanged so the
// caller of Start sees it. Faults are never dropped silently.
//
// Stop implementations call MarkStopped so IsRunning turns false at once;
// the in-flight Start may still raise its single completion.
//
// Subscribers are invoked synchronously in registration order. Subscribing
// after a run has begun misses whatever was already emitted.
package process
