// Package cli provides the terminal client for the resume relay.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"resume-relay/internal/client"
	"resume-relay/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	relayURL string
	timeout  time.Duration

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "resume-chat",
	Short: "Chat with the resume assistant from a terminal",
	Long: `resume-chat talks to a running resume relay.

It keeps the conversation locally, sends each turn with the history so far,
and can also submit a contact request or check upstream health.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if relayURL == "" {
			relayURL = cfg.RelayURL
		}
		return nil
	},
}

func newClient() *client.Client {
	return client.New(client.Config{BaseURL: relayURL, Timeout: timeout})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&relayURL, "url", "", "relay base URL (default $RELAY_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(tokenCmd)
}

