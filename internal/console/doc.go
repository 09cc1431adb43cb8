// Package console renders driver activity for a human at a terminal.
//
// Printer implements driver.Sink: it frames each unit with a border,
// prints change notifications as "sender:: message" lines coloured by
// category, and reports completions. Prompter reads menu selections by
// number or name. Colour is enabled only when the writer is a terminal.
package console
