// Package main hosts the batchproc CLI entrypoint and command graph.
//
// The Cobra command tree loads the TOML configuration, builds process units
// from the catalog, and hands them to the queue driver. Relayed process
// output goes to the terminal through the console printer while structured
// logs go to the log file, so a run reads like a transcript.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through dedicated commands or flags.
package main
