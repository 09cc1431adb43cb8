// Package preflight provides readiness checks for the filesystem paths and
// services a queue run depends on.
//
// `batchproc run` calls RunAll before the first unit starts. Every unit
// that implements process.PathReporter contributes its directories; if any
// required check fails the run is refused so a long queue does not halt
// halfway on a missing target workspace. The ntfy check is advisory.
package preflight
