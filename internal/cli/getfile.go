package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/transfer"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newGetFileCmd() *cobra.Command {
	var (
		output      string
		nameFromImg bool
	)
	cmd := &cobra.Command{
		Use:   "get-file UUID (-o FILE | -O)",
		Short: "Download an image's file payload",
		Long: `Download an image's file payload.

The transferred bytes are checksummed in flight and verified against the
digest and size declared in the image manifest. With -O the local file is
named after the image ("NAME-VERSION.EXT"). "-o -" streams to stdout.`,
		Args: exactArgs(1, "get-file UUID (-o FILE | -O)"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			if (output == "") == !nameFromImg {
				return cmderr.Usagef("one of -o or -O is required")
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			img, err := api.GetImage(args[0])
			if err != nil {
				return err
			}
			if len(img.Files) == 0 {
				return cmderr.Usagef("image %s has no file payload", args[0])
			}
			file := img.Files[0]
			if nameFromImg {
				output = fmt.Sprintf("%s-%s%s", img.Name, img.Version,
					fileExtension(file.Compression))
			}

			body, _, err := api.GetFileStream(args[0])
			if err != nil {
				return err
			}
			defer body.Close()

			sess, err := transfer.New(transfer.Options{
				Algorithm:      "sha1",
				ExpectedDigest: file.SHA1,
				ExpectedSize:   file.Size,
				Label:          output,
				Progress:       c.stderr,
				Quiet:          c.quiet,
			})
			if err != nil {
				return err
			}
			if err := c.saveStream(body, sess, output); err != nil {
				return err
			}
			if output != "-" {
				fmt.Fprintf(c.stdout, "Saved image %s file to %q (%d bytes)\n",
					args[0], output, sess.Size())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the payload to this file ('-' for stdout)")
	cmd.Flags().BoolVarP(&nameFromImg, "output-name", "O", false, "name the local file after the image")
	return cmd
}

func (c *CLI) newGetIconCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get-icon UUID -o FILE",
		Short: "Download an image's icon payload",
		Args:  exactArgs(1, "get-icon UUID -o FILE"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			if output == "" {
				return cmderr.Usagef("-o is required")
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			body, info, err := api.GetIconStream(args[0])
			if err != nil {
				return err
			}
			defer body.Close()

			// The icon route declares integrity via Content-MD5.
			sess, err := transfer.New(transfer.Options{
				Algorithm:      "md5",
				ExpectedDigest: info.ContentMD5,
				ExpectedSize:   info.Size,
				Label:          output,
				Progress:       c.stderr,
				Quiet:          c.quiet,
			})
			if err != nil {
				return err
			}
			if err := c.saveStream(body, sess, output); err != nil {
				return err
			}
			if output != "-" {
				fmt.Fprintf(c.stdout, "Saved image %s icon to %q\n", args[0], output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the icon to this file ('-' for stdout)")
	return cmd
}

// saveStream copies body to path through the transfer session, removing a
// partial local file when the copy or the integrity check fails.
func (c *CLI) saveStream(body io.Reader, sess *transfer.Session, path string) error {
	var dst io.Writer
	var f *os.File
	if path == "-" {
		dst = c.stdout
	} else {
		var err error
		f, err = os.Create(path)
		if err != nil {
			return cmderr.Internal(err)
		}
		dst = f
	}

	_, copyErr := io.Copy(sess.Writer(dst), body)
	if f != nil {
		if err := f.Close(); err != nil && copyErr == nil {
			copyErr = err
		}
	}
	if copyErr == nil {
		copyErr = sess.Finish()
	} else {
		sess.Finish()
		copyErr = cmderr.Client(copyErr)
	}
	if copyErr != nil && f != nil {
		os.Remove(path)
	}
	return copyErr
}
