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

package upgrade

import (
	"context"

	"github.com/discourse-tools/dsc/internal/remote"
	"github.com/discourse-tools/dsc/pkg/config"
)

// Target identifies one managed host for the duration of a run.
type Target struct {
	// Name is the logical install name from the configuration.
	Name string
	// Address is the ssh destination. It defaults to Name.
	Address string
	// Commands are the remote commands run for each step.
	Commands config.Commands
}

// NewTarget builds the Target for a configured install.
func NewTarget(d config.Discourse, commands config.Commands) Target {
	return Target{
		Name:     d.Name,
		Address:  d.SSHTarget(),
		Commands: commands,
	}
}

// Outcome records the facts collected by a completed upgrade. Nil pointers
// mean the value is unknown.
type Outcome struct {
	BeforeAppVersion *string
	AfterAppVersion  *string
	BeforeOSVersion  *string
	AfterOSVersion   *string
	ReclaimedSpace   *string
	OSUpdated        bool
	ServerRebooted   bool
}

// AppVersion is the most recent known application version.
func (o Outcome) AppVersion() (string, bool) {
	if o.AfterAppVersion != nil {
		return *o.AfterAppVersion, true
	}
	if o.BeforeAppVersion != nil {
		return *o.BeforeAppVersion, true
	}
	return "", false
}

// Runner executes remote commands.
type Runner interface {
	Run(ctx context.Context, target, command string) (remote.Result, error)
	Stream(ctx context.Context, target, command string, onLine func(remote.Line)) (remote.Result, error)
}

// Prober reports whether a host is reachable.
type Prober interface {
	Probe(ctx context.Context, target string) bool
}

// VersionSource looks up the application version of one install.
type VersionSource interface {
	FetchVersion(ctx context.Context) (string, error)
}

// Reporter receives user-facing progress for a host.
type Reporter interface {
	Stage(host, message string)
	Warn(host, message string)
	// Progress starts a long-running step. onLine receives command output and
	// done must be called when the step finishes.
	Progress(host, message string) (onLine func(remote.Line), done func())
}

type nopReporter struct{}

func (nopReporter) Stage(string, string) {}
func (nopReporter) Warn(string, string)  {}
func (nopReporter) Progress(string, string) (func(remote.Line), func()) {
	return func(remote.Line) {}, func() {}
}

func optional(value string, ok bool) *string {
	if !ok {
		return nil
	}
	return &value
}
