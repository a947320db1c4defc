package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newUpdateCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "update UUID [FIELD=VALUE ...]",
		Short: "Update mutable fields of an image record",
		Long: `Update mutable fields of an image record.

Field values are parsed as JSON where possible, so booleans, numbers and
arrays work as expected:

  update UUID description="new description"
  update UUID public=true acl='["39f6c01e-945f-11e1-a523-af1afbe22822"]'

Alternatively -f FILE (or "-" for stdin) supplies a JSON object of fields.`,
		Args: minimumArgs(1, "update UUID [FIELD=VALUE ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Check(args[0]); err != nil {
				return err
			}
			fields := map[string]interface{}{}
			if manifestPath != "" {
				data, err := c.readManifestInput(manifestPath)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &fields); err != nil {
					return cmderr.InvalidManifest(err)
				}
			}
			for _, arg := range args[1:] {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return cmderr.Usagef("invalid field %q (expect FIELD=VALUE)", arg)
				}
				fields[k] = parseFieldValue(v)
			}
			if len(fields) == 0 {
				return cmderr.Usagef("no fields to update")
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			updated, err := api.UpdateImage(args[0], fields)
			if err != nil {
				return err
			}
			return c.printJSON(updated)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "file", "f", "", "JSON object of fields to update ('-' for stdin)")
	return cmd
}

// parseFieldValue interprets v as JSON when it parses, else as a plain
// string, so "public=true" is a boolean while "version=1.0" stays a
// string only when quoted.
func parseFieldValue(v string) interface{} {
	var parsed interface{}
	if err := json.Unmarshal([]byte(v), &parsed); err == nil {
		return parsed
	}
	return v
}
