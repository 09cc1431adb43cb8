// Package events defines the notification values exchanged between running
// processes and whoever observes them.
//
// Change notifications report progress any number of times during a run;
// a completion notification ends the run and carries the result code the
// driver uses to decide whether the queue advances. Both are plain values:
// once built they are passed by copy and never mutated.
package events
