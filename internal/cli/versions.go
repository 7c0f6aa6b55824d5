package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apkfetch/internal/app"
	"apkfetch/internal/types"
)

type versionsOptions struct {
	ListFile string
	Source   string
	Catalogs []string
	Options  map[string]string
	Sort     bool
	HTTP     httpOptions
}

func newVersionsCommand() *cobra.Command {
	opts := versionsOptions{}
	cmd := &cobra.Command{
		Use:   "versions [id...]",
		Short: "List the versions a catalog offers for each app",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersions(cmd.Context(), cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ListFile, "list-file", "", "CSV file of id[,version] rows")
	cmd.Flags().StringVar(&opts.Source, "source", app.DefaultSource, "Catalog to query")
	cmd.Flags().StringSliceVar(&opts.Catalogs, "catalog", nil, "Extra catalog definition files")
	cmd.Flags().StringToStringVar(&opts.Options, "option", nil, "Catalog option as key=value")
	cmd.Flags().BoolVar(&opts.Sort, "sort", false, "Sort versions newest first instead of page order")
	addHTTPFlags(cmd, &opts.HTTP)
	_ = viper.BindPFlag("source", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("catalogs", cmd.Flags().Lookup("catalog"))
	return cmd
}

func runVersions(ctx context.Context, cmd *cobra.Command, args []string, opts versionsOptions) error {
	apps, err := app.CollectApps(args, opts.ListFile)
	if err != nil {
		return err
	}
	service := newAppService()
	out := commandOutput(cmd)
	_, err = service.ListVersions(ctx, app.VersionsRequest{
		Apps:     apps,
		Source:   resolveString(cmd, opts.Source, "source", "source"),
		Catalogs: resolveStrings(cmd, opts.Catalogs, "catalogs", "catalog"),
		Options:  resolveStringMap(cmd, opts.Options, "options", "option"),
		Sort:     resolveBool(cmd, opts.Sort, "sort", "sort"),
		HTTP:     resolveHTTPConfig(cmd, opts.HTTP),
	}, func(listing types.VersionListing) {
		printListing(out, listing)
	})
	return err
}

func printListing(out io.Writer, listing types.VersionListing) {
	if len(listing.Notice) > 0 {
		for _, line := range listing.Notice {
			fmt.Fprintln(out, line)
		}
		return
	}
	fmt.Fprintf(out, "Listing versions for %s on %s:\n", listing.Identifier, listing.Catalog)
	switch {
	case listing.Err != nil:
		fmt.Fprintln(out, errorMessage(listing.Err))
	case len(listing.Entries) == 0:
		fmt.Fprintf(out, "No versions found for %s\n", listing.Identifier)
	default:
		for _, entry := range listing.Entries {
			fmt.Fprintf(out, "Version: %s (%s)\n", entry.Version, entry.ReleaseDate)
		}
	}
	fmt.Fprintln(out)
}
