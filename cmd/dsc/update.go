package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/juju/loggo"
	"github.com/spf13/cobra"

	"github.com/discourse-tools/dsc/internal/audit"
	"github.com/discourse-tools/dsc/internal/changelog"
	"github.com/discourse-tools/dsc/internal/fleet"
	"github.com/discourse-tools/dsc/internal/forum"
	"github.com/discourse-tools/dsc/internal/remote"
	"github.com/discourse-tools/dsc/internal/ui"
	"github.com/discourse-tools/dsc/internal/upgrade"
	"github.com/discourse-tools/dsc/pkg/config"
)

var logger = loggo.GetLogger("dsc.cmd")

// updateOptions stores parsed update flags.
type updateOptions struct {
	// Name is an install name or "all".
	Name string
	// Concurrent upgrades hosts in parallel; only valid with "all".
	Concurrent bool
	// Max bounds the number of parallel hosts; 0 means all of them.
	Max int
	// PostChangelog publishes a changelog post after each completed host.
	PostChangelog bool
	// Yes skips the changelog confirmation prompt.
	Yes bool
}

var flagUpdate updateOptions

var updateCmd = &cobra.Command{
	Use:   "update <name|all>",
	Short: "Upgrade the OS and Discourse on one or all installs over ssh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := flagUpdate
		opts.Name = args[0]
		if err := validateUpdate(opts, cmd.Flags().Changed("max")); err != nil {
			return err
		}
		return runUpdate(cmd.Context(), opts)
	},
}

func init() {
	updateCmd.Flags().BoolVarP(&flagUpdate.Concurrent, "concurrent", "C", false, "Update hosts in parallel (update all only).")
	updateCmd.Flags().IntVarP(&flagUpdate.Max, "max", "m", 0, "Maximum number of hosts updated at once (requires --concurrent).")
	updateCmd.Flags().BoolVarP(&flagUpdate.PostChangelog, "post-changelog", "p", false, "Post a changelog entry after each successful update.")
	updateCmd.Flags().BoolVarP(&flagUpdate.Yes, "yes", "y", false, "Post changelog entries without asking.")
}

func validateUpdate(opts updateOptions, maxSet bool) error {
	if opts.Name != "all" && (opts.Concurrent || maxSet) {
		return errors.New("--concurrent/--max only apply to 'dsc update all'")
	}
	if maxSet && !opts.Concurrent {
		return errors.New("--max requires --concurrent")
	}
	if maxSet && opts.Max < 1 {
		return errors.New("--max must be at least 1")
	}
	return nil
}

// selectInstalls resolves an update target name against the configuration.
func selectInstalls(cfg config.Config, name string) ([]config.Discourse, error) {
	if name == "all" {
		if len(cfg.Discourse) == 0 {
			return nil, fmt.Errorf("no installs configured in %s", flagConfig)
		}
		return cfg.Discourse, nil
	}
	d, ok := cfg.Find(name)
	if !ok {
		return nil, fmt.Errorf("unknown discourse %q", name)
	}
	return []config.Discourse{d}, nil
}

func buildHosts(installs []config.Discourse, commands config.Commands) ([]fleet.Host, error) {
	hosts := make([]fleet.Host, 0, len(installs))
	for _, d := range installs {
		target := upgrade.NewTarget(d, commands)
		if err := remote.ValidateTarget(target.Address); err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}

		host := fleet.Host{Discourse: d, Target: target}
		if client, err := forum.New(d); err == nil {
			host.Versions = client
		} else {
			logger.Debugf("no version lookups for %s: %v", d.Name, err)
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}

func newPoster(d config.Discourse) (changelog.Poster, error) {
	client, err := forum.New(d)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func runUpdate(ctx context.Context, opts updateOptions) error {
	cfg, lookup, err := loadConfig()
	if err != nil {
		return err
	}
	installs, err := selectInstalls(cfg, opts.Name)
	if err != nil {
		return err
	}
	sshOptions, err := config.SSHOptionsFrom(lookup)
	if err != nil {
		return err
	}
	hosts, err := buildHosts(installs, config.CommandsFrom(lookup))
	if err != nil {
		return err
	}

	log, err := audit.Open(config.AuditDir(lookup), nil)
	if err != nil {
		return err
	}
	defer log.Close()
	logger.Debugf("audit log: %s", log.Path())

	var reporter upgrade.Reporter = ui.NewSpinnerPrinter(os.Stdout)
	if opts.Concurrent {
		reporter = ui.NewPrinter(os.Stdout)
	}
	channel := remote.NewChannel(sshOptions)
	runner := &fleet.Runner{
		Upgrader: upgrade.NewSequencer(channel, remote.NewProber(channel), reporter, nil),
		Audit:    log,
	}
	if opts.PostChangelog {
		runner.Publisher = &changelog.Publisher{
			Out:       os.Stdout,
			NewPoster: newPoster,
			Confirm:   ui.Confirm,
			AutoYes:   opts.Yes,
			RunID:     config.RunID(lookup),
			Audit:     log,
		}
	}

	var results []fleet.Result
	if opts.Concurrent {
		results, err = runner.RunParallel(ctx, hosts, opts.Max)
	} else {
		results, err = runner.RunSequential(ctx, hosts)
	}
	printSummary(os.Stdout, results)
	return err
}

func printSummary(w io.Writer, results []fleet.Result) {
	if len(results) < 2 {
		return
	}
	completed, failed := fleet.Summary(results)
	fmt.Fprintln(w)
	for _, result := range results {
		switch {
		case !result.Attempted:
			fmt.Fprintf(w, "%s %s\n", ui.Muted("skipped"), result.Host)
		case result.Err != nil:
			fmt.Fprintf(w, "%s %s\n", ui.Error("failed "), result.Host)
		case result.PublishErr != nil:
			fmt.Fprintf(w, "%s %s (changelog post failed)\n", ui.Warning("updated"), result.Host)
		default:
			fmt.Fprintf(w, "%s %s\n", ui.Success("updated"), result.Host)
		}
	}
	fmt.Fprintf(w, "%d updated, %d failed, %d skipped\n", completed, failed, len(results)-completed-failed)
}
