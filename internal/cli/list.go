package cli

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
	"github.com/imgapi/imgapi-cli/internal/tabulate"
)

const defaultListColumns = "uuid,name,version,flags,os,pubdate"

func (c *CLI) newListCmd() *cobra.Command {
	var (
		jsonOut  bool
		columns  string
		sortBy   string
		noHeader bool
		all      bool
		latest   bool
		marker   string
		limit    int
	)
	cmd := &cobra.Command{
		Use:     "list [FIELD=VALUE ...]",
		Aliases: []string{"ls"},
		Short:   "List image records",
		Long: `List image records, optionally filtered.

Filters are FIELD=VALUE pairs matched server side, e.g.:

  list os=linux type=docker
  list name=~base          # substring match
  list state=all           # include disabled and unactivated images

Output columns and sorting:

  list -o uuid,name,version,state -s name,-version
  list -H -o uuid           # just the UUIDs, no header`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := url.Values{}
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return cmderr.Usagef("invalid filter %q (expect FIELD=VALUE)", arg)
				}
				filter.Add(k, v)
			}
			if all && filter.Get("state") == "" {
				filter.Set("state", "all")
			}

			api, err := c.api()
			if err != nil {
				return err
			}
			images, err := api.ListImages(filter, imgapi.ListOptions{
				Marker: marker,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if latest {
				images = latestOnly(images)
			}

			if jsonOut {
				return c.printJSON(images)
			}
			records := make([]map[string]string, len(images))
			for i, img := range images {
				records[i] = img.Record()
			}
			err = tabulate.Format(c.stdout, records, tabulate.Options{
				Columns:  splitFields(columns),
				Valid:    imgapi.ImageFields(),
				Sort:     splitFields(sortBy),
				NoHeader: noHeader,
			})
			if err != nil {
				return cmderr.Usagef("%v", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "JSON output")
	cmd.Flags().StringVarP(&columns, "output", "o", defaultListColumns, "comma-delimited columns to show")
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "", "comma-delimited sort fields, '-' prefix for descending")
	cmd.Flags().BoolVarP(&noHeader, "no-header", "H", false, "omit the table header row")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include disabled and unactivated images")
	cmd.Flags().BoolVar(&latest, "latest", false, "only the latest image per (owner, name)")
	cmd.Flags().StringVar(&marker, "marker", "", "list images after this UUID or published date")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of images to return")
	return cmd
}

// latestOnly collapses the listing to the most recently published image
// per (owner, name), keeping the result in input order.
func latestOnly(images []*imgapi.Manifest) []*imgapi.Manifest {
	latest := make(map[string]*imgapi.Manifest)
	for _, img := range images {
		key := img.Owner + "/" + img.Name
		if cur, ok := latest[key]; !ok || img.PublishedAt > cur.PublishedAt {
			latest[key] = img
		}
	}
	var out []*imgapi.Manifest
	for _, img := range images {
		if latest[img.Owner+"/"+img.Name] == img {
			out = append(out, img)
		}
	}
	return out
}
