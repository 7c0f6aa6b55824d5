package app

import (
	"context"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apkfetch/internal/core"
	"apkfetch/internal/types"
)

// Download runs one batch. Per-app failures are reported as outcomes; the
// returned error covers only problems that stop the batch from starting.
func (s Service) Download(ctx context.Context, req DownloadRequest, report func(types.DownloadOutcome)) (DownloadResult, error) {
	if len(req.Apps) == 0 {
		return DownloadResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one app identifier is required")
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return DownloadResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is required")
	}
	if req.SleepMs < 0 {
		return DownloadResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("sleep duration must not be negative")
	}
	engine, err := s.engine(req.Source, req.Catalogs, req.Options, req.HTTP)
	if err != nil {
		return DownloadResult{}, err
	}
	output := s.NewOutput(outputDir)
	if req.MinFreeMB > 0 {
		if err := output.CheckCapacity(ctx, uint64(req.MinFreeMB)<<20); err != nil {
			return DownloadResult{}, err
		}
	}
	parallel := req.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	log.Ctx(ctx).Debug().
		Str("catalog", engine.Catalog.Name).
		Int("apps", len(req.Apps)).
		Int("parallel", parallel).
		Int("sleep_ms", req.SleepMs).
		Msg("starting batch")

	runner := core.NewBatchRunner(engine, output)
	outcomes := runner.Run(ctx, req.Apps, core.BatchOptions{
		MaxParallel: parallel,
		PacingDelay: time.Duration(req.SleepMs) * time.Millisecond,
	}, report)

	result := DownloadResult{Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Saved() {
			result.Saved++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

func (s Service) engine(source string, catalogFiles []string, options map[string]string, httpCfg HTTPConfig) (*core.ChainEngine, error) {
	name := strings.TrimSpace(source)
	if name == "" {
		name = DefaultSource
	}
	catalog, err := s.Catalogs(catalogFiles).Load(name)
	if err != nil {
		return nil, err
	}
	return core.NewChainEngine(catalog, s.NewFetcher(httpCfg), options)
}
