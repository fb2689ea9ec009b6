package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/discourse-tools/dsc/pkg/config"
)

const (
	formatPlaintext     = "plaintext"
	formatMarkdown      = "markdown"
	formatMarkdownTable = "markdown-table"
	formatJSON          = "json"
	formatYAML          = "yaml"
	formatCSV           = "csv"
)

var listFormats = []string{formatPlaintext, formatMarkdown, formatMarkdownTable, formatJSON, formatYAML, formatCSV}

var (
	flagListFormat string
	flagListTags   string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured Discourse installs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(flagConfig)
		if err != nil {
			return err
		}
		return renderList(os.Stdout, flagListFormat, cfg.FilterByTags(config.ParseTags(flagListTags)))
	},
}

var listTidyCmd = &cobra.Command{
	Use:   "tidy",
	Short: "Sort installs by name and rewrite the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(flagConfig)
		if err != nil {
			return err
		}
		cfg.Tidy()
		return config.Write(flagConfig, cfg)
	},
}

func init() {
	listCmd.AddCommand(listTidyCmd)
	listCmd.Flags().StringVarP(&flagListFormat, "format", "f", formatPlaintext, "Output format: "+strings.Join(listFormats, ", ")+".")
	listCmd.Flags().StringVar(&flagListTags, "tags", "", "Only list installs with one of these comma-separated tags.")
}

func renderList(w io.Writer, format string, installs []config.Discourse) error {
	switch format {
	case formatPlaintext:
		for _, d := range installs {
			fmt.Fprintf(w, "%s - %s\n", d.Name, d.BaseURL)
		}
	case formatMarkdown:
		for _, d := range installs {
			fmt.Fprintf(w, "- %s (%s)\n", d.Name, d.BaseURL)
		}
	case formatMarkdownTable:
		fmt.Fprintln(w, "| Name | Base URL |")
		fmt.Fprintln(w, "| --- | --- |")
		for _, d := range installs {
			fmt.Fprintf(w, "| %s | %s |\n", d.Name, d.BaseURL)
		}
	case formatJSON:
		if installs == nil {
			installs = []config.Discourse{}
		}
		payload, err := json.MarshalIndent(installs, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding installs: %w", err)
		}
		fmt.Fprintln(w, string(payload))
	case formatYAML:
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(redacted(installs)); err != nil {
			return fmt.Errorf("encoding installs: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	case formatCSV:
		writer := csv.NewWriter(w)
		_ = writer.Write([]string{"name", "baseurl", "tags"})
		for _, d := range installs {
			_ = writer.Write([]string{d.Name, d.BaseURL, strings.Join(d.Tags, ";")})
		}
		writer.Flush()
		return writer.Error()
	default:
		return fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(listFormats, ", "))
	}
	return nil
}

// redacted drops API keys before installs are printed.
func redacted(installs []config.Discourse) []config.Discourse {
	out := make([]config.Discourse, len(installs))
	for i, d := range installs {
		d.APIKey = ""
		out[i] = d
	}
	return out
}
