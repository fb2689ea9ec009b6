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

package changelog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/juju/loggo"

	"github.com/discourse-tools/dsc/internal/audit"
	"github.com/discourse-tools/dsc/internal/upgrade"
	"github.com/discourse-tools/dsc/pkg/config"
)

var logger = loggo.GetLogger("dsc.changelog")

// ErrReportPublishFailed marks a failed post after a successful upgrade.
var ErrReportPublishFailed = errors.New("changelog post failed")

// Poster creates a reply in a forum topic and returns the new post's id.
type Poster interface {
	CreatePost(ctx context.Context, topicID uint64, raw string) (uint64, error)
}

// Recorder is the part of the audit log the publisher writes to.
type Recorder interface {
	Record(event, host, detail string) error
}

// Publisher prints a host's changelog payload and posts it to the host's
// changelog topic.
type Publisher struct {
	// Out receives the payload and status lines. Defaults to os.Stdout.
	Out io.Writer
	// NewPoster builds the forum client for a host.
	NewPoster func(config.Discourse) (Poster, error)
	// Confirm asks whether to post. Not called when AutoYes or RunID is set.
	Confirm func(prompt string) (bool, error)
	AutoYes bool
	// RunID is threaded into the payload and echoed after a post is created.
	RunID string
	Audit Recorder

	// Serializes prompts and output of parallel hosts.
	mu sync.Mutex
}

// Publish posts the changelog for d. Missing topic or credentials skip the
// post without error; a failed post returns ErrReportPublishFailed.
func (p *Publisher) Publish(ctx context.Context, d config.Discourse, outcome *upgrade.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.Out
	if out == nil {
		out = os.Stdout
	}

	payload := Payload(outcome, p.RunID)
	fmt.Fprintf(out, "\nChangelog message for %s:\n%s\n\n", d.Name, payload)

	if d.ChangelogTopicID == 0 {
		fmt.Fprintf(out, "Changelog post skipped: missing changelog_topic_id for %s\n", d.Name)
		return nil
	}
	if !d.HasCredentials() {
		fmt.Fprintf(out, "Changelog post skipped: apikey and api_username are required for %s\n", d.Name)
		return nil
	}

	ok, err := p.confirm(out)
	if err != nil {
		return fmt.Errorf("confirming changelog post: %w", err)
	}
	if !ok {
		fmt.Fprintln(out, "Changelog post skipped.")
		return nil
	}

	id, err := p.post(ctx, d, payload)
	if err != nil {
		fmt.Fprintf(out, "Changelog post failed: %v\n", err)
		p.record(audit.EventPostFailed, d.Name, err.Error())
		return fmt.Errorf("%w for %s: %w", ErrReportPublishFailed, d.Name, err)
	}

	fmt.Fprintf(out, "Changelog post created with ID: %d\n", id)
	if p.RunID != "" {
		fmt.Fprintf(out, "DSC_TEST_POST_ID=%d\n", id)
	}
	p.record(audit.EventPostCreated, d.Name, "post "+strconv.FormatUint(id, 10))
	return nil
}

func (p *Publisher) confirm(out io.Writer) (bool, error) {
	const prompt = "Post this to changelog?"
	if p.AutoYes || p.RunID != "" {
		fmt.Fprintf(out, "%s [y/N]: y (auto)\n", prompt)
		return true, nil
	}
	if p.Confirm == nil {
		return false, nil
	}
	return p.Confirm(prompt)
}

func (p *Publisher) post(ctx context.Context, d config.Discourse, payload string) (uint64, error) {
	if p.NewPoster == nil {
		return 0, errors.New("no forum client configured")
	}
	poster, err := p.NewPoster(d)
	if err != nil {
		return 0, err
	}
	return poster.CreatePost(ctx, d.ChangelogTopicID, payload)
}

func (p *Publisher) record(event, host, detail string) {
	if p.Audit == nil {
		return
	}
	if err := p.Audit.Record(event, host, detail); err != nil {
		logger.Warningf("audit record %s for %s failed: %v", event, host, err)
	}
}
