package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"spotify2mp3/internal/config"
	"spotify2mp3/internal/core/updater"
	"spotify2mp3/internal/shared"
)

func newVersionCommand(opts *options, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and check for updates.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("spotify2mp3 v%s\n", version)

			cfg := config.DefaultConfig()
			if shared.FileExists(opts.configFile) {
				if err := config.LoadConfig(opts.configFile, cfg); err != nil {
					return err
				}
				cfg.ApplyDefaults()
			}
			if cfg.DisableUpdateCheck {
				return nil
			}

			ctx, cancel := context.WithTimeout(commandContext(cmd), updateCheckTimeout)
			defer cancel()
			info, err := updater.NewUpdater("", nil, opts.debug).CheckForUpdates(ctx, version, cfg.UpdateRepo)
			if err != nil {
				shared.ColorWarning.Printf("⚠️ Could not check for updates: %v\n", err)
				return nil
			}
			if info.UpdateAvailable {
				shared.ColorWarning.Printf("🚨 A new version (%s) is available: %s\n", info.LatestVersion, info.ReleaseURL)
			} else {
				shared.ColorSuccess.Println("✅ You are running the latest version of spotify2mp3.")
			}
			return nil
		},
	}
}
