package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/docker"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
	"github.com/imgapi/imgapi-cli/internal/transfer"
)

func (c *CLI) newImportDockerCmd() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "import-docker REPO[:TAG]",
		Short: "Import an image from a Docker registry",
		Long: `Import an image from a Docker registry as a docker-type image record.

The remote image's layers are flattened into one tar payload, spooled and
digested locally, then uploaded and activated. Registry credentials come
from the ambient Docker config.

Examples:
  import-docker alpine:3.20
  import-docker ghcr.io/acme/tool:1.4 --platform linux/arm64`,
		Args: exactArgs(1, "import-docker REPO[:TAG]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			src, err := docker.Resolve(cmd.Context(), args[0], platform)
			if err != nil {
				return cmderr.Client(err)
			}

			spool, size, sha1, err := c.spoolDockerFilesystem(src)
			if err != nil {
				return err
			}
			defer os.Remove(spool)

			manifest := src.Manifest()
			// The server assigns the UUID at create time; capture it
			// separately since later steps clobber final when they fail
			// and the undo must still know what to delete.
			var (
				final       *imgapi.Manifest
				createdUUID string
			)
			err = runSteps([]step{
				{
					name: "create image",
					run: func() error {
						final, err = api.CreateImage(manifest)
						if err != nil {
							return err
						}
						createdUUID = final.UUID
						return nil
					},
					undo: func() error {
						return api.DeleteImage(createdUUID)
					},
				},
				{
					name: "add file",
					run: func() error {
						f, err := os.Open(spool)
						if err != nil {
							return cmderr.Internal(err)
						}
						defer f.Close()
						final, err = api.AddImageFile(createdUUID, imgapi.AddFileOptions{
							Body:        f,
							Size:        size,
							Compression: "none",
							SHA1:        sha1,
						})
						return err
					},
				},
				{
					name: "activate",
					run: func() error {
						final, err = api.ActivateImage(createdUUID)
						return err
					},
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Imported %s as image %s\n", src.Ref, final.UUID)
			return c.printJSON(final)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "linux/amd64", "target platform of the remote image")
	return cmd
}

// spoolDockerFilesystem writes the image's flattened filesystem to a temp
// file, digesting it in flight, and returns the spool path, its size and
// sha1 hex digest.
func (c *CLI) spoolDockerFilesystem(src *docker.Source) (string, int64, string, error) {
	body := src.FlattenedFilesystem()
	defer body.Close()

	tmp, err := os.CreateTemp("", "imgapi-import-*.tar")
	if err != nil {
		return "", 0, "", cmderr.Internal(err)
	}
	sess, err := transfer.New(transfer.Options{
		Algorithm:    "sha1",
		ExpectedSize: -1,
		Label:        src.Ref.String(),
		Progress:     c.stderr,
		Quiet:        c.quiet,
	})
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", 0, "", err
	}
	_, copyErr := io.Copy(sess.Writer(tmp), body)
	if err := tmp.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if ferr := sess.Finish(); ferr != nil && copyErr == nil {
		copyErr = ferr
	}
	if copyErr != nil {
		os.Remove(tmp.Name())
		return "", 0, "", cmderr.Client(copyErr)
	}
	return tmp.Name(), sess.Size(), sess.Digest(), nil
}
