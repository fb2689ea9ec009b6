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

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("dsc.github")

func New() *Client {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return NewUnauthenticated()
	}

	return &Client{
		gh: github.NewClient(nil).WithAuthToken(token),
	}
}

func NewUnauthenticated() *Client {
	return &Client{
		gh: github.NewClient(nil),
	}
}

// NewWithBaseURL points the client at another API endpoint, such as a GitHub
// Enterprise server or a test server.
func NewWithBaseURL(baseURL string) (*Client, error) {
	gh, err := github.NewClient(nil).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{gh: gh}, nil
}

type Client struct {
	gh *github.Client
}

// Release is the subset of a GitHub release dsc cares about.
type Release struct {
	Tag         string
	Name        string
	URL         string
	PublishedAt time.Time
}

// Version is the release tag without a leading "v".
func (r Release) Version() string {
	return strings.TrimPrefix(r.Tag, "v")
}

// LatestRelease returns the newest published release of project, given as
// "owner/repo" or a github.com URL. Repositories that only push tags fall
// back to the most recent tag.
func (c *Client) LatestRelease(ctx context.Context, project string) (Release, error) {
	owner, repo, err := extractOrgAndProject(project)
	if err != nil {
		return Release{}, err
	}

	for {
		release, resp, err := c.gh.Repositories.GetLatestRelease(ctx, owner, repo)
		if sleepOnRateLimitError(ctx, err) {
			continue
		}
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return c.latestTag(ctx, owner, repo)
			}
			return Release{}, fmt.Errorf("fetching latest release of %s/%s: %w", owner, repo, err)
		}

		return Release{
			Tag:         release.GetTagName(),
			Name:        release.GetName(),
			URL:         release.GetHTMLURL(),
			PublishedAt: release.GetPublishedAt().Time,
		}, nil
	}
}

func (c *Client) latestTag(ctx context.Context, owner, repo string) (Release, error) {
	logger.Debugf("%s/%s has no releases, falling back to tags", owner, repo)
	for {
		tags, _, err := c.gh.Repositories.ListTags(ctx, owner, repo, &github.ListOptions{PerPage: 1})
		if sleepOnRateLimitError(ctx, err) {
			continue
		}
		if err != nil {
			return Release{}, fmt.Errorf("listing tags of %s/%s: %w", owner, repo, err)
		}
		if len(tags) == 0 {
			return Release{}, fmt.Errorf("%s/%s has no releases or tags", owner, repo)
		}
		return Release{Tag: tags[0].GetName()}, nil
	}
}

func sleepOnRateLimitError(ctx context.Context, err error) bool {
	var rateLimitErr *github.RateLimitError
	if !errors.As(err, &rateLimitErr) {
		return false
	}

	sleepDelay := time.Until(rateLimitErr.Rate.Reset.Time)
	fmt.Printf("Rate limit exceeded, waiting %d seconds for reset...\n", int64(sleepDelay.Seconds()))

	select {
	case <-ctx.Done():
		return false
	case <-time.After(sleepDelay):
	}

	return true
}

func extractOrgAndProject(project string) (string, string, error) {
	path := project
	if strings.Contains(project, "://") {
		parsedURL, err := url.Parse(project)
		if err != nil {
			return "", "", err
		}
		path = parsedURL.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/repo, got %q", project)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
