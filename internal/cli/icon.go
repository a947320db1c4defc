package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/transfer"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newAddIconCmd() *cobra.Command {
	var iconPath string
	cmd := &cobra.Command{
		Use:   "add-icon UUID -f FILE",
		Short: "Upload an image's icon",
		Args:  exactArgs(1, "add-icon UUID -f FILE"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			if iconPath == "" {
				return cmderr.Usagef("-f is required")
			}
			contentType, err := iconContentType(iconPath)
			if err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			f, err := os.Open(iconPath)
			if err != nil {
				return cmderr.Usagef("cannot read icon file: %v", err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return cmderr.Internal(err)
			}
			sess, err := transfer.New(transfer.Options{
				Algorithm:    "md5",
				ExpectedSize: info.Size(),
				Label:        iconPath,
				Progress:     c.stderr,
				Quiet:        c.quiet,
			})
			if err != nil {
				return err
			}
			updated, err := api.AddImageIcon(args[0], contentType, sess.Reader(f), info.Size())
			if ferr := sess.Finish(); err == nil {
				err = ferr
			}
			if err != nil {
				return err
			}
			return c.printJSON(updated)
		},
	}
	cmd.Flags().StringVarP(&iconPath, "file", "f", "", "icon file (.png, .gif or .jpg)")
	return cmd
}

func (c *CLI) newDeleteIconCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-icon UUID",
		Short: "Remove an image's icon",
		Args:  exactArgs(1, "delete-icon UUID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			updated, err := api.DeleteImageIcon(args[0])
			if err != nil {
				return err
			}
			return c.printJSON(updated)
		},
	}
}
