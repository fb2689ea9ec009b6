package remote

import "strings"

const DefaultTailLines = 3

// Tail keeps the last N lines of command output for display.
type Tail struct {
	size  int
	lines []string
}

// NewTail returns a Tail holding at most size lines. A non-positive size
// falls back to DefaultTailLines.
func NewTail(size int) *Tail {
	if size <= 0 {
		size = DefaultTailLines
	}
	return &Tail{size: size}
}

func (t *Tail) Push(line string) {
	if len(t.lines) == t.size {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.size-1]
	}
	t.lines = append(t.lines, line)
}

func (t *Tail) Lines() []string {
	return append([]string(nil), t.lines...)
}

// Render formats the tail under a heading, indenting every line.
func (t *Tail) Render(heading string) string {
	var b strings.Builder
	b.WriteString(heading)
	for _, line := range t.lines {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	return b.String()
}
