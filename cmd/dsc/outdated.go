package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/discourse-tools/dsc/internal/forum"
	"github.com/discourse-tools/dsc/internal/ui"
	"github.com/discourse-tools/dsc/pkg/config"
	"github.com/discourse-tools/dsc/pkg/github"
)

const versionLookups = 8

var flagOutdatedTags string

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "Compare installed Discourse versions with the latest upstream release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(flagConfig)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		release, err := github.New().LatestRelease(ctx, cfg.GetUpstream())
		if err != nil {
			return err
		}
		installs := cfg.FilterByTags(config.ParseTags(flagOutdatedTags))
		versions := installedVersions(ctx, installs)

		rows := make([][]string, 0, len(installs))
		for i, d := range installs {
			rows = append(rows, []string{d.Name, displayVersion(versions[i]), release.Version(), status(versions[i], release.Version())})
		}
		fmt.Fprintln(os.Stdout, ui.Table([]string{"Name", "Installed", "Latest", "Status"}, rows))
		return nil
	},
}

func init() {
	outdatedCmd.Flags().StringVar(&flagOutdatedTags, "tags", "", "Only check installs with one of these comma-separated tags.")
}

// installedVersions looks up every install's version; unknown versions are
// left empty.
func installedVersions(ctx context.Context, installs []config.Discourse) []string {
	versions := make([]string, len(installs))

	var g errgroup.Group
	g.SetLimit(versionLookups)
	for i, d := range installs {
		i, d := i, d
		g.Go(func() error {
			client, err := forum.New(d)
			if err != nil {
				logger.Debugf("skipping %s: %v", d.Name, err)
				return nil
			}
			version, err := client.FetchVersion(ctx)
			if err != nil {
				logger.Infof("version of %s unknown: %v", d.Name, err)
				return nil
			}
			versions[i] = version
			return nil
		})
	}
	_ = g.Wait()
	return versions
}

func displayVersion(version string) string {
	if version == "" {
		return "unknown"
	}
	return version
}

func status(installed, latest string) string {
	switch {
	case installed == "":
		return ui.Muted("unknown")
	case github.IsOutdated(installed, latest):
		return ui.Warning("outdated")
	default:
		return ui.Success("up to date")
	}
}
