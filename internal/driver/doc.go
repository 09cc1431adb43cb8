// Package driver runs an ordered queue of process units one at a time.
//
// A Driver owns its FIFO queue exclusively. StartNext dequeues the head,
// subscribes the relay sink to its notifications, starts it, and inspects
// the first completion the unit raises: SUCCESS advances to the next unit,
// anything else halts the run. Units that raise faults halt the run too; a
// fault nobody observed is returned to the caller unchanged.
//
// The chain is driven by a loop inside StartNext, so queue length never
// grows the call stack. Every unit outcome can be handed to a Recorder and
// queue milestones to a notifications.Service.
package driver
