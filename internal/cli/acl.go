package cli

import (
	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/imgapi"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

func (c *CLI) newAddACLCmd() *cobra.Command {
	return c.aclCmd("add-acl", "Grant accounts access to a private image",
		func(api *imgapi.Client, img string, accounts []string) (*imgapi.Manifest, error) {
			return api.AddImageACL(img, accounts)
		})
}

func (c *CLI) newRemoveACLCmd() *cobra.Command {
	return c.aclCmd("remove-acl", "Revoke accounts' access to a private image",
		func(api *imgapi.Client, img string, accounts []string) (*imgapi.Manifest, error) {
			return api.RemoveImageACL(img, accounts)
		})
}

func (c *CLI) aclCmd(verb, short string, fn func(*imgapi.Client, string, []string) (*imgapi.Manifest, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " UUID ACCOUNT [ACCOUNT ...]",
		Short: short,
		Args:  minimumArgs(2, verb+" UUID ACCOUNT [ACCOUNT ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, u := range args {
				if err := uuid.Check(u); err != nil {
					return err
				}
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			updated, err := fn(api, args[0], args[1:])
			if err != nil {
				return err
			}
			return c.printJSON(updated)
		},
	}
}
