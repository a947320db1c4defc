package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/imgapi"
)

// The state-transition commands share one shape: one or more UUIDs,
// applied concurrently, failures collected per target.

func (c *CLI) newActivateCmd() *cobra.Command {
	return c.lifecycleCmd("activate", "Activate one or more images",
		func(api *imgapi.Client, uuid string) (*imgapi.Manifest, error) {
			return api.ActivateImage(uuid)
		}, "Activated image %s")
}

func (c *CLI) newDisableCmd() *cobra.Command {
	return c.lifecycleCmd("disable", "Disable one or more images",
		func(api *imgapi.Client, uuid string) (*imgapi.Manifest, error) {
			return api.DisableImage(uuid)
		}, "Disabled image %s")
}

func (c *CLI) newEnableCmd() *cobra.Command {
	return c.lifecycleCmd("enable", "Enable one or more images",
		func(api *imgapi.Client, uuid string) (*imgapi.Manifest, error) {
			return api.EnableImage(uuid)
		}, "Enabled image %s")
}

func (c *CLI) lifecycleCmd(verb, short string, fn func(*imgapi.Client, string) (*imgapi.Manifest, error), doneFmt string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " UUID [UUID ...]",
		Short: short,
		Args:  minimumArgs(1, verb+" UUID [UUID ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			return c.runBatch(args, func(uuid string) (string, error) {
				if _, err := fn(api, uuid); err != nil {
					return "", err
				}
				return fmt.Sprintf(doneFmt, uuid), nil
			})
		},
	}
}

func (c *CLI) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete UUID [UUID ...]",
		Aliases: []string{"rm"},
		Short:   "Delete one or more image records and their payloads",
		Args:    minimumArgs(1, "delete UUID [UUID ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			return c.runBatch(args, func(uuid string) (string, error) {
				if err := api.DeleteImage(uuid); err != nil {
					return "", err
				}
				return fmt.Sprintf("Deleted image %s", uuid), nil
			})
		},
	}
}
