package cli

import (
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

func (c *CLI) newSelfupdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selfupdate",
		Short: "Update this binary to the latest release",
		Args:  exactArgs(0, "selfupdate"),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(c.stdout, "Current version: %s\n", c.profile.Version)

			latest, found, err := selfupdate.DetectLatest(c.profile.UpdateRepo)
			if err != nil {
				return cmderr.Client(fmt.Errorf("failed to check for updates: %w", err))
			}
			if !found {
				return cmderr.Internal(fmt.Errorf("no release found for %s", c.profile.UpdateRepo))
			}

			// Dev builds always update.
			if c.profile.Version != "dev" {
				current, err := semver.Parse(stripVersionPrefix(c.profile.Version))
				if err != nil {
					return cmderr.Internal(fmt.Errorf("failed to parse current version: %w", err))
				}
				if latest.Version.LTE(current) {
					fmt.Fprintf(c.stdout, "Already up to date (version %s)\n", c.profile.Version)
					return nil
				}
			}

			fmt.Fprintf(c.stdout, "Updating to version %s...\n", latest.Version)
			exe, err := os.Executable()
			if err != nil {
				return cmderr.Internal(fmt.Errorf("failed to get executable path: %w", err))
			}
			if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
				return cmderr.Client(fmt.Errorf("failed to update: %w", err))
			}
			fmt.Fprintf(c.stdout, "Successfully updated to version %s\n", latest.Version)
			return nil
		},
	}
}

func stripVersionPrefix(version string) string {
	if len(version) > 0 && version[0] == 'v' {
		return version[1:]
	}
	return version
}
