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

package config

import (
	"strings"
)

const DefaultUpstream = "discourse/discourse"

type Config struct {
	Upstream  string      `yaml:"upstream,omitempty" json:"upstream,omitempty"`
	Discourse []Discourse `yaml:"discourse" json:"discourse"`
}

// Discourse is a single managed forum install.
type Discourse struct {
	Name             string   `yaml:"name" json:"name"`
	BaseURL          string   `yaml:"baseurl" json:"baseurl"`
	FullName         string   `yaml:"fullname,omitempty" json:"fullname,omitempty"`
	APIKey           string   `yaml:"apikey,omitempty" json:"-"`
	APIUsername      string   `yaml:"api_username,omitempty" json:"api_username,omitempty"`
	ChangelogPath    string   `yaml:"changelog_path,omitempty" json:"changelog_path,omitempty"`
	ChangelogTopicID uint64   `yaml:"changelog_topic_id,omitempty" json:"changelog_topic_id,omitempty"`
	Tags             []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	SSHHost          string   `yaml:"ssh_host,omitempty" json:"ssh_host,omitempty"`
}

// Find returns the install with the given name.
func (c *Config) Find(name string) (Discourse, bool) {
	for _, d := range c.Discourse {
		if d.Name == name {
			return d, true
		}
	}
	return Discourse{}, false
}

func (c *Config) GetUpstream() string {
	if strings.TrimSpace(c.Upstream) == "" {
		return DefaultUpstream
	}
	return c.Upstream
}

// SSHTarget is the address used for remote commands. It defaults to the
// logical name when no ssh_host is configured.
func (d Discourse) SSHTarget() string {
	if host := strings.TrimSpace(d.SSHHost); host != "" {
		return host
	}
	return d.Name
}

// HasCredentials reports whether both API credentials are set.
func (d Discourse) HasCredentials() bool {
	return strings.TrimSpace(d.APIKey) != "" && strings.TrimSpace(d.APIUsername) != ""
}

// Add appends d unless an install with the same name exists.
func (c *Config) Add(d Discourse) bool {
	if _, ok := c.Find(d.Name); ok {
		return false
	}
	c.Discourse = append(c.Discourse, d)
	return true
}

// FilterByTags returns the installs carrying at least one of tags. An empty
// tag list matches everything.
func (c *Config) FilterByTags(tags []string) []Discourse {
	if len(tags) == 0 {
		return c.Discourse
	}
	var out []Discourse
	for _, d := range c.Discourse {
		if d.hasAnyTag(tags) {
			out = append(out, d)
		}
	}
	return out
}

func (d Discourse) hasAnyTag(tags []string) bool {
	for _, have := range d.Tags {
		for _, want := range tags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// ParseTags splits a comma or semicolon separated tag list.
func ParseTags(raw string) []string {
	var tags []string
	for _, tag := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
