package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/discourse-tools/dsc/internal/remote"
	"github.com/discourse-tools/dsc/internal/upgrade"
)

var (
	_ upgrade.Reporter = (*Printer)(nil)
	_ upgrade.Reporter = (*SpinnerPrinter)(nil)
)

func TestPrinterStage(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Stage("forum", "Rebooting server")
	p.Warn("forum", "Rollback failed")
	onLine, done := p.Progress("forum", "OS update in progress")
	onLine(remote.Line{Text: "ignored"})
	done()

	got := buf.String()
	for _, want := range []string{"[forum]", "Rebooting server\n", "Rollback failed\n", "OS update in progress...\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q does not contain %q", got, want)
		}
	}
	if strings.Contains(got, "ignored") {
		t.Errorf("plain printer echoed command output: %q", got)
	}
}

func TestPrinterConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p.Stage("host", "message")
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 100 {
		t.Fatalf("got %d lines, want 100", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "message") {
			t.Errorf("interleaved line %q", line)
		}
	}
}

func TestSpinnerPrinterProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewSpinnerPrinter(&buf)

	onLine, done := p.Progress("forum", "Discourse update in progress")
	for _, text := range []string{"one", "two", "three", "four"} {
		onLine(remote.Line{Stream: remote.Stdout, Text: text})
	}
	done()

	if !strings.Contains(buf.String(), "Discourse update in progress finished") {
		t.Errorf("output %q has no completion line", buf.String())
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"Name", "Status"}, [][]string{{"meta", "outdated"}, {"try", "up to date"}})
	for _, want := range []string{"Name", "Status", "meta", "outdated", "up to date"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table() = %q, missing %q", out, want)
		}
	}
}
