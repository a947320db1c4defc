package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
	"github.com/imgapi/imgapi-cli/internal/transfer"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newImportCmd() *cobra.Command {
	var (
		manifestPath   string
		dataPath       string
		compression    string
		source         string
		skipOwnerCheck bool
	)
	cmd := &cobra.Command{
		Use:   "import (-f MANIFEST [--data FILE] | UUID --source URL)",
		Short: "Import an image record, preserving its UUID",
		Long: `Import an image record, preserving its UUID.

Unlike create, import keeps the manifest's UUID, which is how records are
copied between deployments. With --data the file payload is uploaded and
the image activated; the record is deleted again if a later call fails.

With --source the manifest and file payload are pulled from another
deployment of the registry instead of local files:

  import 01b2c898-945f-11e1-a523-af1afbe22822 --source https://images.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != "" {
				if len(args) != 1 {
					return cmderr.Usagef("usage: import UUID --source URL")
				}
				if manifestPath != "" || dataPath != "" {
					return cmderr.Usagef("--source cannot be combined with -f or --data")
				}
				if err := uuid.Check(args[0]); err != nil {
					return err
				}
				return c.importFromSource(args[0], source, skipOwnerCheck)
			}

			if len(args) != 0 {
				return cmderr.Usagef("usage: import -f MANIFEST [--data FILE]")
			}
			data, err := c.readManifestInput(manifestPath)
			if err != nil {
				return err
			}
			manifest, err := imgapi.ParseManifest(data)
			if err != nil {
				return err
			}
			if err := uuid.Check(manifest.UUID); err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}

			if dataPath == "" {
				imported, err := api.ImportImage(manifest, skipOwnerCheck)
				if err != nil {
					return err
				}
				return c.printJSON(imported)
			}

			if compression == "" {
				compression = compressionFromPath(dataPath)
			}
			// Later steps clobber final on failure; the record's UUID is
			// known upfront here, so the undo uses that.
			imageUUID := manifest.UUID
			var final *imgapi.Manifest
			err = runSteps([]step{
				{
					name: "import image",
					run: func() error {
						final, err = api.ImportImage(manifest, skipOwnerCheck)
						return err
					},
					undo: func() error {
						return api.DeleteImage(imageUUID)
					},
				},
				{
					name: "add file",
					run: func() error {
						final, err = c.uploadFile(api, imageUUID, dataPath, compression)
						return err
					},
				},
				{
					name: "activate",
					run: func() error {
						final, err = api.ActivateImage(imageUUID)
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
	cmd.Flags().StringVar(&dataPath, "data", "", "image data payload to upload after importing")
	cmd.Flags().StringVar(&compression, "compression", "", "payload compression; guessed from the extension when not given")
	cmd.Flags().StringVar(&source, "source", "", "pull the manifest and file from this registry URL")
	cmd.Flags().BoolVar(&skipOwnerCheck, "skip-owner-check", false, "skip the owner-exists check (operator only)")
	return cmd
}

// importFromSource copies an image from another deployment: its manifest
// and file payload are fetched from the source registry, the record is
// imported here with the same UUID, and the payload is re-uploaded with
// the digest verified on both legs.
func (c *CLI) importFromSource(imageUUID, sourceURL string, skipOwnerCheck bool) error {
	api, err := c.api()
	if err != nil {
		return err
	}
	src, err := imgapi.New(imgapi.Options{
		URL:       sourceURL,
		Insecure:  c.insecure,
		UserAgent: c.profile.Name + "/" + c.profile.Version,
	})
	if err != nil {
		return err
	}

	manifest, err := src.GetImage(imageUUID)
	if err != nil {
		return err
	}
	if len(manifest.Files) == 0 {
		return cmderr.Usagef("source image %s has no file payload", imageUUID)
	}
	file := manifest.Files[0]

	var final *imgapi.Manifest
	err = runSteps([]step{
		{
			name: "import image",
			run: func() error {
				final, err = api.ImportImage(manifest, skipOwnerCheck)
				return err
			},
			undo: func() error {
				return api.DeleteImage(imageUUID)
			},
		},
		{
			name: "copy file",
			run: func() error {
				body, _, err := src.GetFileStream(imageUUID)
				if err != nil {
					return err
				}
				defer body.Close()
				sess, err := transfer.New(transfer.Options{
					Algorithm:      "sha1",
					ExpectedDigest: file.SHA1,
					ExpectedSize:   file.Size,
					Label:          imageUUID,
					Progress:       c.stderr,
					Quiet:          c.quiet,
				})
				if err != nil {
					return err
				}
				updated, err := api.AddImageFile(imageUUID, imgapi.AddFileOptions{
					Body:        sess.Reader(body),
					Size:        file.Size,
					Compression: file.Compression,
					SHA1:        file.SHA1,
					DatasetGUID: file.DatasetGUID,
				})
				if ferr := sess.Finish(); err == nil {
					err = ferr
				}
				if err != nil {
					return err
				}
				if len(updated.Files) == 0 {
					return cmderr.Internal(fmt.Errorf("server stored no file for image %s", imageUUID))
				}
				if err := sess.CheckDigest(updated.Files[0].SHA1); err != nil {
					return err
				}
				final = updated
				return nil
			},
		},
		{
			name: "activate",
			run: func() error {
				final, err = api.ActivateImage(imageUUID)
				return err
			},
		},
	})
	if err != nil {
		return err
	}
	return c.printJSON(final)
}
