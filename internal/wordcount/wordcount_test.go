package wordcount_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"batchproc/internal/events"
	"batchproc/internal/process"
	"batchproc/internal/wordcount"
)

type capture struct {
	changes     []events.Change
	completions []events.Completion
	faults      []error
}

func subscribe(p *wordcount.Process, withFaults bool) *capture {
	c := &capture{}
	p.SubscribeChange(func(_ string, change events.Change) { c.changes = append(c.changes, change) })
	p.SubscribeCompletion(func(_ string, completion events.Completion) {
		c.completions = append(c.completions, completion)
	})
	if withFaults {
		p.SubscribeException(func(_ string, err error) { c.faults = append(c.faults, err) })
	}
	return c
}

func (c *capture) hasChange(category events.Category, message string) bool {
	for _, change := range c.changes {
		if change.Category == category && change.Message == message {
			return true
		}
	}
	return false
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestTokenize(t *testing.T) {
	got := wordcount.Tokenize("Hello, World!  hello\tWORLD_x\n(Ünïcode) it's")
	want := []string{"hello", "world", "hello", "worldx", "ünïcode", "its"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %q, want %q", got, want)
	}
	if len(wordcount.Tokenize(" ... !!! ")) != 0 {
		t.Fatal("punctuation-only input should yield no tokens")
	}
}

func TestRankedOrdersByCountThenWord(t *testing.T) {
	stats := wordcount.NewDocumentStatistics()
	stats.CountWords([]string{"b", "a", "c", "c", "", "b"})
	got := stats.Ranked()
	want := []wordcount.WordCount{{Word: "b", Count: 2}, {Word: "c", Count: 2}, {Word: "a", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Ranked = %v, want %v", got, want)
	}
}

func TestStartCountsWordsAndWritesJSON(t *testing.T) {
	corpus := writeCorpus(t, map[string]string{
		"a.txt": "The cat. The hat!",
		"b.txt": "the CAT sat",
	})
	output := filepath.Join(t.TempDir(), "out", "stats.json")
	p := wordcount.New(process.Options{"FilePath": corpus, "OutputPath": output})
	c := subscribe(p, true)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(c.completions) != 1 || c.completions[0].Result != events.ResultSuccess || c.completions[0].Message != "Process finished" {
		t.Fatalf("unexpected completions %+v", c.completions)
	}
	if p.IsRunning() || p.State() != process.StateCompleted {
		t.Fatalf("expected completed, got %s", p.State())
	}
	if !c.hasChange(events.CategoryInfo, "2 Files found") || !c.hasChange(events.CategoryInfo, "the             3    ") {
		t.Fatalf("missing expected changes: %+v", c.changes)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var stats wordcount.DocumentStatistics
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if stats.DocumentCount != 2 || !reflect.DeepEqual(stats.Documents, []string{"a.txt", "b.txt"}) {
		t.Fatalf("unexpected documents %+v", stats)
	}
	want := map[string]int{"the": 3, "cat": 2, "hat": 1, "sat": 1}
	if !reflect.DeepEqual(stats.WordCounts, want) {
		t.Fatalf("WordCounts = %v, want %v", stats.WordCounts, want)
	}
}

func TestMissingDirectoryStillCompletes(t *testing.T) {
	output := filepath.Join(t.TempDir(), "stats.json")
	p := wordcount.New(process.Options{
		"file_path":   filepath.Join(t.TempDir(), "absent"),
		"output_path": output,
	})
	c := subscribe(p, false)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.hasChange(events.CategoryDebug, "No Directory found") {
		t.Fatalf("expected DEBUG change, got %+v", c.changes)
	}
	if len(c.completions) != 1 || c.completions[0].Result != events.ResultSuccess {
		t.Fatalf("expected SUCCESS completion, got %+v", c.completions)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("no output expected when nothing was counted, stat err=%v", err)
	}
}

func TestUnreadableDirectoryReportsAccessDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	corpus := writeCorpus(t, map[string]string{"a.txt": "x"})
	if err := os.Chmod(corpus, 0o000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(corpus, 0o755)

	p := wordcount.New(process.Options{"FilePath": corpus, "OutputPath": filepath.Join(t.TempDir(), "o.json")})
	c := subscribe(p, false)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.hasChange(events.CategoryDebug, "ACCESS DENIED") {
		t.Fatalf("expected ACCESS DENIED, got %+v", c.changes)
	}
}

func TestStopDuringRunClearsRunningImmediately(t *testing.T) {
	corpus := writeCorpus(t, map[string]string{"a.txt": "one", "b.txt": "two"})
	p := wordcount.New(process.Options{"FilePath": corpus, "OutputPath": filepath.Join(t.TempDir(), "o.json")})
	c := subscribe(p, true)
	stopped := false
	runningAfterStop := true
	p.SubscribeChange(func(_ string, change events.Change) {
		if !stopped && change.Message == "processing files.." {
			p.Stop()
			stopped = true
			runningAfterStop = p.IsRunning()
		}
	})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !stopped || runningAfterStop {
		t.Fatalf("expected IsRunning false straight after Stop (stopped=%v)", stopped)
	}
	if len(c.completions) != 1 || c.completions[0].Result != events.ResultUnexpectedShutdown {
		t.Fatalf("expected one UNEXPECTED_SHUTDOWN completion, got %+v", c.completions)
	}
	if p.State() != process.StateFailed {
		t.Fatalf("expected failed state, got %s", p.State())
	}
}

func TestCompletionSeesStoppedProcess(t *testing.T) {
	corpus := writeCorpus(t, map[string]string{"a.txt": "word"})
	p := wordcount.New(process.Options{"FilePath": corpus, "OutputPath": filepath.Join(t.TempDir(), "o.json")})
	runningAtCompletion := true
	p.SubscribeCompletion(func(string, events.Completion) {
		runningAtCompletion = p.IsRunning()
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if runningAtCompletion {
		t.Fatal("run should be stopped before its completion is raised")
	}
}

func TestMissingOptionsRaiseFault(t *testing.T) {
	t.Run("unobserved propagates", func(t *testing.T) {
		p := wordcount.New(process.Options{"FilePath": t.TempDir()})
		err := p.Start(context.Background())
		if err == nil {
			t.Fatal("expected error for missing OutputPath")
		}
		if p.State() != process.StateFailed {
			t.Fatalf("expected failed state, got %s", p.State())
		}
	})
	t.Run("observed is delivered", func(t *testing.T) {
		p := wordcount.New(process.Options{})
		c := subscribe(p, true)
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("observed fault must not be returned: %v", err)
		}
		if len(c.faults) != 1 || len(c.completions) != 0 {
			t.Fatalf("expected one fault and no completion, got %v / %v", c.faults, c.completions)
		}
	})
}

func TestContextEndsMapToResultCodes(t *testing.T) {
	corpus := writeCorpus(t, map[string]string{"a.txt": "words"})
	opts := process.Options{"FilePath": corpus, "OutputPath": filepath.Join(t.TempDir(), "o.json")}

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		want events.ResultCode
	}{
		{name: "deadline", ctx: expired, want: events.ResultProcessTimeout},
		{name: "canceled", ctx: canceled, want: events.ResultUnexpectedShutdown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := wordcount.New(opts)
			c := subscribe(p, true)
			if err := p.Start(tc.ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if len(c.completions) != 1 || c.completions[0].Result != tc.want {
				t.Fatalf("expected %s, got %+v", tc.want, c.completions)
			}
		})
	}
}

func TestInvalidTimeoutIsFault(t *testing.T) {
	p := wordcount.New(process.Options{"FilePath": "a", "OutputPath": "b", "timeout_seconds": "soon"})
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected fault for invalid timeout")
	}
}

func TestRequiredPaths(t *testing.T) {
	p := wordcount.New(process.Options{"OutputPath": "/srv/out/stats.json"})
	got := p.RequiredPaths()
	if len(got) != 1 || got[0].Path != "/srv/out" || !got[0].Writable || !got[0].MayCreate {
		t.Fatalf("unexpected requirements %+v", got)
	}
	if wordcount.New(nil).RequiredPaths() != nil {
		t.Fatal("expected no requirements without options")
	}
}

func TestStartWhileRunningFailsFast(t *testing.T) {
	corpus := writeCorpus(t, map[string]string{"a.txt": "x"})
	p := wordcount.New(process.Options{"FilePath": corpus, "OutputPath": filepath.Join(t.TempDir(), "o.json")})
	var reentry error
	p.SubscribeChange(func(_ string, change events.Change) {
		if change.Message == "processing files.." {
			reentry = p.Start(context.Background())
		}
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !errors.Is(reentry, process.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", reentry)
	}
}
