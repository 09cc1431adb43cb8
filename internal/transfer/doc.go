// Package transfer implements the data-transfer process.
//
// A Process owns a private FIFO of Descriptors, each moving one file from an
// origin workspace (a directory) into a target workspace. COPY replaces the
// target, keeping the previous file as <name>_OLD unless override_output is
// set; TRUNCATE_APPEND empties the target and appends the origin to it.
// Targets are locked with flock while they are rewritten.
package transfer
