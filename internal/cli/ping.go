package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify the registry endpoint responds",
		Args:  exactArgs(0, "ping"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			out, err := api.Ping()
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
}
