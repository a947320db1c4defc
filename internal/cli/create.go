package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
	"github.com/imgapi/imgapi-cli/internal/transfer"
)

func (c *CLI) newCreateCmd() *cobra.Command {
	var (
		manifestPath string
		dataPath     string
		compression  string
	)
	cmd := &cobra.Command{
		Use:   "create -f MANIFEST [--data FILE]",
		Short: "Create a new (unactivated) image record",
		Long: `Create a new image record from a manifest.

The manifest is read from the -f file, or from stdin when -f is "-" or not
given. With --data the file payload is uploaded and the image activated in
the same invocation; if any of those later calls fails, the partially
created image record is deleted again.`,
		Args: exactArgs(0, "create -f MANIFEST [--data FILE]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.readManifestInput(manifestPath)
			if err != nil {
				return err
			}
			manifest, err := imgapi.ParseManifest(data)
			if err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}

			if dataPath == "" {
				created, err := api.CreateImage(manifest)
				if err != nil {
					return err
				}
				return c.printJSON(created)
			}

			if compression == "" {
				compression = compressionFromPath(dataPath)
			}
			// The created record's UUID is captured on its own: later
			// steps clobber final when they fail, and the undo must
			// still know what to delete.
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
						final, err = c.uploadFile(api, createdUUID, dataPath, compression)
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
			return c.printJSON(final)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "file", "f", "", "manifest file ('-' for stdin)")
	cmd.Flags().StringVar(&dataPath, "data", "", "image data payload to upload after creating")
	cmd.Flags().StringVar(&compression, "compression", "", "payload compression (gzip, bzip2, xz, none); guessed from the extension when not given")
	return cmd
}

// uploadFile streams the payload at path to the image's file route while
// digesting it, then cross-checks the digest the server stored.
func (c *CLI) uploadFile(api *imgapi.Client, uuid, path, compression string) (*imgapi.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cmderr.Usagef("cannot read data file: %v", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, cmderr.Internal(err)
	}

	sess, err := transfer.New(transfer.Options{
		Algorithm:    "sha1",
		ExpectedSize: info.Size(),
		Label:        path,
		Progress:     c.stderr,
		Quiet:        c.quiet,
	})
	if err != nil {
		return nil, err
	}
	updated, err := api.AddImageFile(uuid, imgapi.AddFileOptions{
		Body:        sess.Reader(f),
		Size:        info.Size(),
		Compression: compression,
	})
	if ferr := sess.Finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return nil, err
	}
	if len(updated.Files) == 0 {
		return nil, cmderr.Internal(fmt.Errorf("server stored no file for image %s", uuid))
	}
	// The server reports the digest it computed while storing the
	// payload; both sides must agree.
	if err := sess.CheckDigest(updated.Files[0].SHA1); err != nil {
		return nil, err
	}
	return updated, nil
}
