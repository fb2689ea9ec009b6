package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/discourse-tools/dsc/internal/ui"
	"github.com/discourse-tools/dsc/pkg/config"
)

var flagAddInteractive bool

var addCmd = &cobra.Command{
	Use:   "add <name>[,<name>...]",
	Short: "Add Discourse installs to the configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(flagConfig)
		if err != nil {
			return err
		}

		for _, name := range splitNames(args[0]) {
			if _, exists := cfg.Find(name); exists {
				fmt.Printf("%s already configured, skipping\n", name)
				continue
			}
			d := config.Discourse{Name: name}
			if flagAddInteractive {
				if d, err = promptInstall(name); err != nil {
					return err
				}
			}
			cfg.Add(d)
			fmt.Println(ui.Success("Added"), name)
		}

		return config.Write(flagConfig, cfg)
	},
}

func init() {
	addCmd.Flags().BoolVarP(&flagAddInteractive, "interactive", "i", false, "Prompt for base URL, API credentials and tags.")
}

func splitNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func promptInstall(name string) (config.Discourse, error) {
	var baseURL, apiKey, apiUsername, tags, sshHost string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(fmt.Sprintf("Configure %s", name)),
			huh.NewInput().
				Title("Base URL").
				Placeholder("https://forum.example.com").
				Value(&baseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("API username").
				Placeholder("system").
				Value(&apiUsername),
			huh.NewInput().
				Title("SSH host").
				Description("Leave empty to use the install name.").
				Value(&sshHost),
			huh.NewInput().
				Title("Tags (comma-separated)").
				Value(&tags),
		),
	)
	if err := form.Run(); err != nil {
		return config.Discourse{}, fmt.Errorf("configuring %s: %w", name, err)
	}

	return config.Discourse{
		Name:        name,
		BaseURL:     strings.TrimSpace(baseURL),
		APIKey:      strings.TrimSpace(apiKey),
		APIUsername: strings.TrimSpace(apiUsername),
		SSHHost:     strings.TrimSpace(sshHost),
		Tags:        config.ParseTags(tags),
	}, nil
}

func validateBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("base URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("base URL needs a host")
	}
	return nil
}
