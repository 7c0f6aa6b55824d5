package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apkfetch/internal/app"
	"apkfetch/internal/types"
)

type downloadOptions struct {
	ListFile  string
	Source    string
	Catalogs  []string
	Parallel  int
	SleepMs   int
	Output    string
	Options   map[string]string
	MinFreeMB int
	HTTP      httpOptions
}

func newDownloadCommand() *cobra.Command {
	opts := downloadOptions{}
	cmd := &cobra.Command{
		Use:   "download [id[@version]...]",
		Short: "Download apps from a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ListFile, "list-file", "", "CSV file of id[,version] rows")
	cmd.Flags().StringVar(&opts.Source, "source", app.DefaultSource, "Catalog to download from")
	cmd.Flags().StringSliceVar(&opts.Catalogs, "catalog", nil, "Extra catalog definition files")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", defaultParallel, "Maximum concurrent downloads")
	cmd.Flags().IntVar(&opts.SleepMs, "sleep-ms", 0, "Delay before each download starts, in milliseconds")
	cmd.Flags().StringVar(&opts.Output, "output", ".", "Output directory")
	cmd.Flags().StringToStringVar(&opts.Options, "option", nil, "Catalog option as key=value")
	cmd.Flags().IntVar(&opts.MinFreeMB, "min-free-mb", 0, "Refuse to start unless the output disk has this much free space")
	addHTTPFlags(cmd, &opts.HTTP)
	_ = viper.BindPFlag("source", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("catalogs", cmd.Flags().Lookup("catalog"))
	_ = viper.BindPFlag("parallel", cmd.Flags().Lookup("parallel"))
	_ = viper.BindPFlag("sleep_ms", cmd.Flags().Lookup("sleep-ms"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("min_free_mb", cmd.Flags().Lookup("min-free-mb"))
	return cmd
}

func runDownload(ctx context.Context, cmd *cobra.Command, args []string, opts downloadOptions) error {
	apps, err := app.CollectApps(args, opts.ListFile)
	if err != nil {
		return err
	}
	out := commandOutput(cmd)
	service := newAppService()
	result, err := service.Download(ctx, app.DownloadRequest{
		Apps:      apps,
		Source:    resolveString(cmd, opts.Source, "source", "source"),
		Catalogs:  resolveStrings(cmd, opts.Catalogs, "catalogs", "catalog"),
		Options:   resolveStringMap(cmd, opts.Options, "options", "option"),
		Parallel:  resolveInt(cmd, opts.Parallel, "parallel", "parallel"),
		SleepMs:   resolveInt(cmd, opts.SleepMs, "sleep_ms", "sleep-ms"),
		OutputDir: resolveString(cmd, opts.Output, "output", "output"),
		MinFreeMB: resolveInt(cmd, opts.MinFreeMB, "min_free_mb", "min-free-mb"),
		HTTP:      resolveHTTPConfig(cmd, opts.HTTP),
	}, func(outcome types.DownloadOutcome) {
		printOutcome(out, outcome)
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Int("saved", result.Saved).Int("failed", result.Failed).Msg("batch finished")
	return nil
}

func printOutcome(out io.Writer, outcome types.DownloadOutcome) {
	if outcome.Saved() {
		fmt.Fprintf(out, "Successfully downloaded %s as %s\n", outcome.Identifier, outcome.Filename)
		return
	}
	fmt.Fprintf(out, "Error downloading %s: %s\n", outcome.Identifier, outcome.Reason)
}

func commandOutput(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return io.Discard
	}
	return cmd.OutOrStdout()
}
