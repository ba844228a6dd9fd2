// Package cli implements the cube command-line driver. It is a thin shell
// over the client library: profile/env/flag resolution, query file loading,
// and output rendering.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cubeclient/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var fatalErr *domain.FatalError
			if errors.As(err, &fatalErr) {
				errObj["http_status"] = fatalErr.Status
				errObj["reason"] = fatalErr.Reason
			}
			var timeoutErr *domain.TimeoutError
			if errors.As(err, &timeoutErr) {
				errObj["attempts"] = timeoutErr.Attempts
				errObj["elapsed"] = timeoutErr.Elapsed.String()
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host    string
		token   string
		output  string
		profile string
	)

	rootCmd := &cobra.Command{
		Use:           "cube",
		Short:         "Semantic-layer query CLI",
		Long:          "Command-line interface for executing analytical queries against a semantic-layer API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load config from profile if flags/env not set
			cfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}

			p := cfg.ActiveProfile(profile)

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("CUBE_HOST"); v != "" {
					host = v
				} else if p.Host != "" {
					host = p.Host
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("CUBE_TOKEN"); v != "" {
					token = v
				} else if p.Token != "" {
					token = p.Token
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("CUBE_OUTPUT"); v != "" {
					output = v
				} else if p.Output != "" {
					output = p.Output
				}
			}
			if output != "" && output != "table" && output != "json" {
				return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:4000", "Semantic-layer host URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for authentication")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newQueryCmd(&host, &token))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
