package cli

import (
	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newAddFileCmd() *cobra.Command {
	var (
		dataPath    string
		compression string
	)
	cmd := &cobra.Command{
		Use:   "add-file UUID -f FILE",
		Short: "Upload an image's file payload",
		Long: `Upload the file payload for an unactivated image.

The payload is digested while uploading; the digest the server computed
while storing it must agree or the command fails with a checksum error.`,
		Args: exactArgs(1, "add-file UUID -f FILE"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			if dataPath == "" {
				return cmderr.Usagef("-f is required")
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			if compression == "" {
				compression = compressionFromPath(dataPath)
			}
			updated, err := c.uploadFile(api, args[0], dataPath, compression)
			if err != nil {
				return err
			}
			return c.printJSON(updated)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "file", "f", "", "file payload to upload")
	cmd.Flags().StringVar(&compression, "compression", "", "payload compression (gzip, bzip2, xz, none); guessed from the extension when not given")
	return cmd
}
