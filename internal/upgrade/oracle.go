package upgrade

import (
	"context"
	"strings"
)

// Oracle answers version questions on a best-effort basis. Lookups never
// fail; an unknown version is reported as ok == false.
type Oracle struct {
	runner Runner
}

func NewOracle(runner Runner) *Oracle {
	return &Oracle{runner: runner}
}

func (o *Oracle) AppVersion(ctx context.Context, source VersionSource) (string, bool) {
	if source == nil {
		return "", false
	}
	version, err := source.FetchVersion(ctx)
	if err != nil {
		logger.Infof("application version lookup failed: %v", err)
		return "", false
	}
	version = strings.TrimSpace(version)
	return version, version != ""
}

// OSVersion runs the primary version command and then the fallback.
func (o *Oracle) OSVersion(ctx context.Context, target Target) (string, bool) {
	for _, command := range []string{target.Commands.OSVersion, target.Commands.OSVersionFallback} {
		if strings.TrimSpace(command) == "" {
			continue
		}
		result, err := o.runner.Run(ctx, target.Address, command)
		if err != nil {
			logger.Debugf("OS version command %q failed on %s: %v", command, target.Name, err)
			continue
		}
		if version := strings.TrimSpace(result.Stdout); version != "" {
			return version, true
		}
	}
	return "", false
}
