package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Operator-only commands, present only on admin-enabled profiles.

func (c *CLI) newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "state",
		Short:  "Dump internal server state (debugging)",
		Hidden: true,
		Args:   exactArgs(0, "state"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			out, err := api.AdminGetState()
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
}

func (c *CLI) newChangeStorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "change-stor STOR UUID [UUID ...]",
		Short: "Move images' files to a different storage backend",
		Args:  minimumArgs(2, "change-stor STOR UUID [UUID ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			stor := args[0]
			api, err := c.api()
			if err != nil {
				return err
			}
			return c.runBatch(args[1:], func(u string) (string, error) {
				if _, err := api.AdminChangeStor(u, stor); err != nil {
					return "", err
				}
				return fmt.Sprintf("Moved image %s file to %q storage", u, stor), nil
			})
		},
	}
}

func (c *CLI) newReloadAuthKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload-auth-keys",
		Short: "Tell the server to reload its auth keys",
		Args:  exactArgs(0, "reload-auth-keys"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			if err := api.AdminReloadAuthKeys(); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, "Reloaded auth keys")
			return nil
		},
	}
}
