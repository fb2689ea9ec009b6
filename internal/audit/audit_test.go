package audit_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/discourse-tools/dsc/internal/audit"
)

var fixedNow = func() time.Time {
	return time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("EST", -5*60*60))
}

func readLines(c *qt.C, path string) []string {
	data, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestFileNameUsesUTCDate(t *testing.T) {
	c := qt.New(t)
	c.Assert(audit.FileName(fixedNow()), qt.Equals, "dsc-update-2025-03-10.log")
}

func TestRecord(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	log, err := audit.Open(dir, fixedNow)
	c.Assert(err, qt.IsNil)
	c.Assert(log.Path(), qt.Equals, filepath.Join(dir, "dsc-update-2025-03-10.log"))

	c.Assert(log.Record(audit.EventStarting, "forum", ""), qt.IsNil)
	c.Assert(log.Record(audit.EventFailed, "forum", "OS update failed:\n exit 100"), qt.IsNil)
	c.Assert(log.Close(), qt.IsNil)

	c.Assert(readLines(c, log.Path()), qt.DeepEquals, []string{
		"2025-03-10T04:30:00Z starting forum",
		"2025-03-10T04:30:00Z failed forum: OS update failed: exit 100",
	})

	info, err := os.Stat(log.Path())
	c.Assert(err, qt.IsNil)
	c.Assert(info.Mode().Perm(), qt.Equals, os.FileMode(0o600))
}

func TestOpenAppendsToExistingLog(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	first, err := audit.Open(dir, fixedNow)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Record(audit.EventCompleted, "a", ""), qt.IsNil)
	c.Assert(first.Close(), qt.IsNil)

	second, err := audit.Open(dir, fixedNow)
	c.Assert(err, qt.IsNil)
	c.Assert(second.Record(audit.EventCompleted, "b", ""), qt.IsNil)
	c.Assert(second.Close(), qt.IsNil)

	c.Assert(readLines(c, second.Path()), qt.HasLen, 2)
}

func TestOpenRefusesSymlink(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	victim := filepath.Join(dir, "victim")
	c.Assert(os.WriteFile(victim, []byte("keep\n"), 0o600), qt.IsNil)
	c.Assert(os.Symlink(victim, filepath.Join(dir, audit.FileName(fixedNow()))), qt.IsNil)

	_, err := audit.Open(dir, fixedNow)
	c.Assert(err, qt.ErrorIs, audit.ErrSymlink)

	data, err := os.ReadFile(victim)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "keep\n")
}

func TestOpenRefusesDirectory(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	c.Assert(os.Mkdir(filepath.Join(dir, audit.FileName(fixedNow())), 0o700), qt.IsNil)

	_, err := audit.Open(dir, fixedNow)
	c.Assert(err, qt.ErrorMatches, ".*not a regular file")
}

func TestRecordConcurrentLinesDoNotInterleave(t *testing.T) {
	c := qt.New(t)
	log, err := audit.Open(c.TempDir(), fixedNow)
	c.Assert(err, qt.IsNil)
	defer log.Close()

	detail := strings.Repeat("x", 512)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				c.Check(log.Record(audit.EventCompleted, "host", detail), qt.IsNil)
			}
		}()
	}
	wg.Wait()

	lines := readLines(c, log.Path())
	c.Assert(lines, qt.HasLen, 500)
	for _, line := range lines {
		c.Assert(line, qt.Equals, "2025-03-10T04:30:00Z completed host: "+detail)
	}
}

func TestRecordAfterClose(t *testing.T) {
	c := qt.New(t)
	log, err := audit.Open(c.TempDir(), fixedNow)
	c.Assert(err, qt.IsNil)
	c.Assert(log.Close(), qt.IsNil)
	c.Assert(log.Close(), qt.IsNil)
	c.Assert(log.Record(audit.EventStarting, "forum", ""), qt.ErrorMatches, "audit log is closed")
}
