/*
Copyright © 2025 Docker, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package remote

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"unicode"

	"github.com/juju/loggo"

	"github.com/discourse-tools/dsc/pkg/config"
)

var logger = loggo.GetLogger("dsc.remote")

// ErrInvalidTarget is returned for targets that could be mistaken for ssh flags.
var ErrInvalidTarget = errors.New("invalid ssh target")

// CommandFailedError reports a remote command that exited non-zero.
type CommandFailedError struct {
	Target   string
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("ssh command failed for %s (exit %d): %s", e.Target, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Result is the collected output of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Stream identifies which output a Line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// Line is a single line of output delivered while a command runs.
type Line struct {
	Stream Stream
	Text   string
}

// Channel runs shell commands on remote hosts through the ssh client. Every
// call starts its own ssh process; nothing is pooled.
type Channel struct {
	// Binary is the ssh executable, "ssh" by default.
	Binary  string
	options config.SSHOptions
}

func NewChannel(options config.SSHOptions) *Channel {
	return &Channel{
		Binary:  "ssh",
		options: options,
	}
}

// ValidateTarget rejects targets that are empty, look like an option, or
// contain whitespace.
func ValidateTarget(target string) error {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return fmt.Errorf("%w: target is empty", ErrInvalidTarget)
	}
	if strings.HasPrefix(trimmed, "-") {
		return fmt.Errorf("%w: target cannot start with '-': %s", ErrInvalidTarget, target)
	}
	if strings.IndexFunc(target, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: target cannot contain whitespace: %q", ErrInvalidTarget, target)
	}
	return nil
}

// Args builds the ssh argument vector for running command on target.
func (c *Channel) Args(target, command string, extra ...string) ([]string, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}

	args := []string{"-o", "BatchMode=yes"}
	if c.options.StrictHostKeyChecking != "" {
		args = append(args, "-o", "StrictHostKeyChecking="+c.options.StrictHostKeyChecking)
	}
	args = append(args, extra...)
	args = append(args, c.options.Extra...)
	args = append(args, "--", target, command)
	return args, nil
}

// Run executes command on target and waits for it to finish.
func (c *Channel) Run(ctx context.Context, target, command string) (Result, error) {
	return c.run(ctx, target, command, nil)
}

// RunWith is Run with additional ssh options placed before the configured ones.
func (c *Channel) RunWith(ctx context.Context, target, command string, extra ...string) (Result, error) {
	return c.run(ctx, target, command, nil, extra...)
}

// Stream executes command on target and calls onLine for every output line as
// it arrives. The full output is still returned.
func (c *Channel) Stream(ctx context.Context, target, command string, onLine func(Line)) (Result, error) {
	return c.run(ctx, target, command, onLine)
}

func (c *Channel) run(ctx context.Context, target, command string, onLine func(Line), extra ...string) (Result, error) {
	args, err := c.Args(target, command, extra...)
	if err != nil {
		return Result{}, err
	}

	logger.Debugf("running on %s: %s", target, command)
	cmd := exec.CommandContext(ctx, c.Binary, args...)

	var stdout, stderr bytes.Buffer
	if onLine == nil {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err = cmd.Run()
	} else {
		err = runStreaming(cmd, &stdout, &stderr, onLine)
	}

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, &CommandFailedError{
			Target:   target,
			Command:  command,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	default:
		return result, fmt.Errorf("running ssh to %s: %w", target, err)
	}
}

func runStreaming(cmd *exec.Cmd, stdout, stderr *bytes.Buffer, onLine func(Line)) error {
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	// onLine is called from one goroutine at a time.
	var mu sync.Mutex
	var wg sync.WaitGroup
	read := func(r io.Reader, stream Stream, buf *bytes.Buffer) {
		defer wg.Done()
		reader := bufio.NewReader(r)
		for {
			text, err := reader.ReadString('\n')
			if text != "" {
				text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
				buf.WriteString(text)
				buf.WriteByte('\n')
				mu.Lock()
				onLine(Line{Stream: stream, Text: text})
				mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}

	wg.Add(2)
	go read(outPipe, Stdout, stdout)
	go read(errPipe, Stderr, stderr)
	wg.Wait()

	return cmd.Wait()
}
