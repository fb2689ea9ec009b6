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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/loggo"
	"github.com/spf13/cobra"

	"github.com/discourse-tools/dsc/pkg/config"
)

var (
	flagConfig  string
	flagEnvFile string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dsc",
	Short: "Manage and upgrade a fleet of Discourse installs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "dsc.yaml", "Path to the dsc configuration file.")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Optional dotenv file with DSC_* overrides.")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging.")

	rootCmd.AddCommand(listCmd, addCmd, importCmd, updateCmd, outdatedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		exitWithError(err)
	}
}

func configureLogging(verbose bool) error {
	level := "WARNING"
	if verbose {
		level = "DEBUG"
	}
	return loggo.ConfigureLoggers("<root>=" + level)
}

// loadConfig reads the configuration file and the environment overrides.
func loadConfig() (config.Config, config.Lookup, error) {
	cfg, err := config.Read(flagConfig)
	if err != nil {
		return config.Config{}, nil, err
	}
	lookup, err := config.LoadEnv(flagEnvFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, lookup, nil
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
