// Package wordcount implements the word-frequency example process.
//
// The process lists the files of a directory, tokenizes each one, tallies
// word frequencies across all of them and writes the statistics as JSON.
// Missing or unreadable input directories are reported as DEBUG changes and
// still complete with SUCCESS; missing options and write failures are
// raised as faults.
package wordcount
