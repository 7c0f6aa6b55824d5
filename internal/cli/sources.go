package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apkfetch/internal/app"
	"apkfetch/internal/types"
)

func newSourcesCommand() *cobra.Command {
	var catalogs []string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the available catalogs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := newAppService().Sources(app.SourcesRequest{
				Catalogs: resolveStrings(cmd, catalogs, "catalogs", "catalog"),
			})
			if err != nil {
				return err
			}
			out := commandOutput(cmd)
			for _, catalog := range list {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", catalog.Name, catalog.Title(), catalog.BaseURL, capabilities(catalog))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&catalogs, "catalog", nil, "Extra catalog definition files")
	_ = viper.BindPFlag("catalogs", cmd.Flags().Lookup("catalog"))
	return cmd
}

func capabilities(catalog types.CatalogDefinition) string {
	var caps []string
	if catalog.Versioned {
		caps = append(caps, "versions")
	} else {
		caps = append(caps, "latest-only")
	}
	if catalog.Listing.Supported {
		caps = append(caps, "listing")
	}
	return strings.Join(caps, ",")
}
