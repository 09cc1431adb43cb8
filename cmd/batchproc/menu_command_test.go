package main

import (
	"strings"
	"testing"

	"batchproc/internal/testsupport"
)

func TestMenuLoadPrintStart(t *testing.T) {
	base := t.TempDir()
	env := setupCLITestEnv(t, testsupport.WithJob("wordcount", "words", wordJob(t, base)))

	// load wordcount from the only section, print, start, quit
	input := strings.Join([]string{"LoadProcessQueue", "wordcount", "0", "2", "3", "0"}, "\n") + "\n"
	out, err := runCLI(t, env, input, "menu")
	if err != nil {
		t.Fatalf("menu: %v\n%s", err, out)
	}
	requireContains(t, out, "[0] - Quit")
	requireContains(t, out, "WordCount (1 in queue)")
	requireContains(t, out, "Queue count: 1")
	requireContains(t, out, "WordCount:: [SUCCESS] Process finished")
}

func TestMenuRejectsUnknownChoice(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env, "9\nQuit\n", "menu")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	requireContains(t, out, "The value entered does not exist in the value list.  Please try again.")
}

func TestMenuEndsOnEOF(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env, "2\n", "menu")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	requireContains(t, out, "Process queue is empty")
}
