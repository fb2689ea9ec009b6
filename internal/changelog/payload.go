package changelog

import (
	"fmt"
	"strings"

	"github.com/discourse-tools/dsc/internal/upgrade"
)

const unknown = "unknown"

// Payload renders the changelog post for an upgrade. A nil outcome reports
// the OS update and reboot as done. The Run-ID line is only added when runID
// is set.
func Payload(outcome *upgrade.Outcome, runID string) string {
	version, reclaimed := unknown, unknown
	var lines []string

	if outcome != nil {
		if v, ok := outcome.AppVersion(); ok {
			version = v
		}
		if outcome.ReclaimedSpace != nil {
			reclaimed = *outcome.ReclaimedSpace
		}

		if outcome.OSUpdated {
			lines = append(lines, "- [x] OS updated")
			if outcome.BeforeOSVersion != nil && outcome.AfterOSVersion != nil {
				lines = append(lines, fmt.Sprintf("  OS version: %s → %s", *outcome.BeforeOSVersion, *outcome.AfterOSVersion))
			}
		} else {
			lines = append(lines, "- [ ] OS updated", "  (OS update was skipped or failed)")
		}

		if outcome.ServerRebooted {
			lines = append(lines, "- [x] Server rebooted")
		} else {
			lines = append(lines, "- [ ] Server rebooted", "  (Server reboot was skipped or failed)")
		}
	} else {
		lines = append(lines, "- [x] OS updated", "- [x] Server rebooted")
	}

	lines = append(lines,
		"- [x] Updated Discourse to version "+version,
		"- [x] Cleanup total reclaimed space: "+reclaimed,
	)
	if runID != "" {
		lines = append(lines, "- Run-ID: "+runID)
	}
	return strings.Join(lines, "\n")
}
