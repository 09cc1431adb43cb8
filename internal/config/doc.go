// Package config loads, normalizes, and validates batchproc configuration.
//
// Settings live in a TOML file. Besides the fixed sections (paths, logging,
// notifications, history, driver) the file carries named job sections under
// [jobs.<name>]; each is handed to a process constructor as a plain
// key/value map that this package never interprets. The [[queue]] array
// lists the units a run loads, in execution order.
package config
