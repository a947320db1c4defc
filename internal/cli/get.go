package cli

import (
	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get UUID",
		Aliases: []string{"show", "info"},
		Short:   "Print an image manifest",
		Args:    exactArgs(1, "get UUID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			img, err := api.GetImage(args[0])
			if err != nil {
				return err
			}
			return c.printJSON(img)
		},
	}
}
