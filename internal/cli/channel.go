package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
	"github.com/imgapi/imgapi-cli/internal/tabulate"
)

func (c *CLI) newChannelsCmd() *cobra.Command {
	var (
		jsonOut  bool
		noHeader bool
	)
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the registry's image channels",
		Args:  exactArgs(0, "channels"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			channels, err := api.ListChannels()
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(channels)
			}
			records := make([]map[string]string, len(channels))
			for i, ch := range channels {
				records[i] = ch.Record()
			}
			err = tabulate.Format(c.stdout, records, tabulate.Options{
				Columns:  imgapi.ChannelFields(),
				Valid:    imgapi.ChannelFields(),
				NoHeader: noHeader,
			})
			if err != nil {
				return cmderr.Usagef("%v", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "JSON output")
	cmd.Flags().BoolVarP(&noHeader, "no-header", "H", false, "omit the table header row")
	return cmd
}

func (c *CLI) newChannelAddCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "channel-add [--to CHANNEL] UUID [UUID ...]",
		Short: "Add one or more images to a channel",
		Args:  minimumArgs(1, "channel-add [--to CHANNEL] UUID [UUID ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := channel
			if target == "" {
				target = c.channel
			}
			if target == "" {
				return cmderr.Usagef("no channel given: use --channel")
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			return c.runBatch(args, func(uuid string) (string, error) {
				if _, err := api.ChannelAddImage(uuid, target); err != nil {
					return "", err
				}
				return fmt.Sprintf("Added image %s to channel %q", uuid, target), nil
			})
		},
	}
	cmd.Flags().StringVar(&channel, "to", "", "destination channel (defaults to the global --channel)")
	return cmd
}
