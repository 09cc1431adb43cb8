// Package notifications delivers queue milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Events cover the
// points an operator cares about: a queue run started, drained, halted on a
// failed unit, or hit an unobserved fault.
//
// All driver code depends only on the Service interface.
package notifications
