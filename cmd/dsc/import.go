package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discourse-tools/dsc/internal/forum"
	"github.com/discourse-tools/dsc/internal/ui"
	"github.com/discourse-tools/dsc/pkg/config"
)

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import installs from a list of base URLs or a name,url,tags CSV file",
	Long: `Import installs from a file, or from stdin when the path is "-" or missing.

Plain input holds one base URL per line. CSV input (a .csv file, or a header
row naming name and url columns) holds name,url[,tags] rows. Installs without
a name are named after their site title, or after the URL when the forum
cannot be reached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		raw, err := readImport(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		installs, err := config.ParseImport(string(raw), strings.EqualFold(filepath.Ext(path), ".csv"))
		if err != nil {
			return err
		}

		cfg, err := config.Read(flagConfig)
		if err != nil {
			return err
		}
		for _, name := range importInstalls(cmd.Context(), &cfg, installs, siteName) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Imported"), name)
		}
		return config.Write(flagConfig, cfg)
	},
}

func readImport(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}

// importInstalls names the unnamed installs and adds them to cfg, skipping
// names that are already configured. It returns the names it added.
func importInstalls(ctx context.Context, cfg *config.Config, installs []config.Discourse, nameFor func(context.Context, config.Discourse) string) []string {
	var added []string
	for _, d := range installs {
		if d.Name == "" {
			d.Name = nameFor(ctx, d)
		}
		if !cfg.Add(d) {
			logger.Infof("%s already configured, skipping", d.Name)
			continue
		}
		added = append(added, d.Name)
	}
	return added
}

// siteName derives an install name from the forum's title, falling back to
// the base URL.
func siteName(ctx context.Context, d config.Discourse) string {
	client, err := forum.New(d)
	if err != nil {
		return config.Slugify(d.BaseURL)
	}
	title, err := client.FetchTitle(ctx)
	if err != nil {
		logger.Debugf("no title for %s: %v", d.BaseURL, err)
		return config.Slugify(d.BaseURL)
	}
	return config.Slugify(title)
}
