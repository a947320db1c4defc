package cli

import (
	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newExportCmd() *cobra.Command {
	var mantaPath string
	cmd := &cobra.Command{
		Use:   "export UUID -o STOR-PATH",
		Short: "Export an image to a storage path",
		Long: `Export an image's manifest and file to a path in the server's backing
object store. The server performs the copy; nothing is transferred
through this client.`,
		Args: exactArgs(1, "export UUID -o STOR-PATH"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			if mantaPath == "" {
				return cmderr.Usagef("-o is required")
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			out, err := api.ExportImage(args[0], mantaPath)
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
	cmd.Flags().StringVarP(&mantaPath, "output", "o", "", "destination path in the backing store")
	return cmd
}
