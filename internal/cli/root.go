// Package cli implements the jar command line client.
package cli

import (
	"time"

	"empty-jar/internal/config"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Profile string
	Offline bool
	JSON    bool

	cfg config.ClientConfig
	now func() time.Time
}

// NewRootCommand creates the root command for the jar client.
func NewRootCommand(cfg config.ClientConfig) *cobra.Command {
	return newRootCommand(cfg, time.Now)
}

func newRootCommand(cfg config.ClientConfig, now func() time.Time) *cobra.Command {
	opts := &RootOptions{cfg: cfg, now: now}

	cmd := &cobra.Command{
		Use:           "jar",
		Short:         "Empty Jar - one note a week",
		Long:          "Keep a weekly note of something good, on this device or synced to your account.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", cfg.ProfileDir, "profile directory")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "queue cloud writes instead of sending them")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print JSON instead of text")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewWeeksCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewReminderCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
