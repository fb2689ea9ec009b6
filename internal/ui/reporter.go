package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/discourse-tools/dsc/internal/remote"
)

// Printer writes "[host] message" stage lines. It is safe for concurrent use
// by several host tasks and never animates, so parallel output stays
// readable.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

func (p *Printer) Stage(host, message string) {
	p.println(fmt.Sprintf("%s %s", hostStyle.Render("["+host+"]"), message))
}

func (p *Printer) Warn(host, message string) {
	p.println(fmt.Sprintf("%s %s", hostStyle.Render("["+host+"]"), warningStyle.Render(message)))
}

func (p *Printer) Progress(host, message string) (func(remote.Line), func()) {
	p.Stage(host, message+"...")
	return func(remote.Line) {}, func() {}
}

func (p *Printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// SpinnerPrinter is a Printer whose long-running steps show a spinner with
// the last few lines of command output. Use it for one host at a time.
type SpinnerPrinter struct {
	*Printer
	// TailLines is the number of output lines shown under the spinner.
	TailLines int
}

func NewSpinnerPrinter(out io.Writer) *SpinnerPrinter {
	return &SpinnerPrinter{Printer: NewPrinter(out), TailLines: remote.DefaultTailLines}
}

func (p *SpinnerPrinter) Progress(host, message string) (func(remote.Line), func()) {
	heading := fmt.Sprintf(" %s %s", hostStyle.Render("["+host+"]"), message)
	tail := remote.NewTail(p.TailLines)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(p.out))
	s.Suffix = heading
	s.Start()

	onLine := func(line remote.Line) {
		s.Lock()
		tail.Push(mutedStyle.Render(line.Text))
		s.Suffix = tail.Render(heading)
		s.Unlock()
	}
	done := func() {
		s.Stop()
		p.Stage(host, message+" finished")
	}
	return onLine, done
}
