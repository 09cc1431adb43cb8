// Package history persists the outcome of every unit a driver starts.
//
// The store is SQLite (modernc.org/sqlite, no cgo) in WAL mode with a busy
// timeout and retry-on-busy writes, so a `batchproc history` listing can
// read while a run is writing. It is an audit log only: queues are never
// restored from it.
package history
