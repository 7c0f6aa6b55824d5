package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"apkfetch/internal/ports"
	"apkfetch/internal/shared"
	"apkfetch/internal/types"
)

const downloadStage = "download"

type BatchOptions struct {
	MaxParallel int
	PacingDelay time.Duration
}

// BatchRunner downloads a list of apps concurrently. Each task waits the
// pacing delay once it holds a parallelism slot, so pacing is per task and
// does not accumulate across the batch.
type BatchRunner struct {
	Catalog   types.CatalogDefinition
	Resolver  ports.ResolverPort
	Fetcher   ports.PageFetcherPort
	Output    ports.OutputPort
	Sleep     func(ctx context.Context, d time.Duration) error
	NewTaskID func() string
}

func NewBatchRunner(engine *ChainEngine, output ports.OutputPort) BatchRunner {
	return BatchRunner{
		Catalog:   engine.Catalog,
		Resolver:  engine,
		Fetcher:   engine.Fetcher,
		Output:    output,
		Sleep:     sleepContext,
		NewTaskID: newTaskID,
	}
}

// Run executes every request and returns one outcome per request in
// completion order. report, when set, is called serially as each outcome
// arrives. A failed request never stops its siblings and is not retried.
func (b BatchRunner) Run(ctx context.Context, requests []types.DownloadRequest, opts BatchOptions, report func(types.DownloadOutcome)) []types.DownloadOutcome {
	parallel := opts.MaxParallel
	if parallel <= 0 {
		parallel = 1
	}
	sem := semaphore.NewWeighted(int64(parallel))
	results := make(chan types.DownloadOutcome, len(requests))
	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- b.runTask(ctx, sem, req, opts.PacingDelay)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]types.DownloadOutcome, 0, len(requests))
	for outcome := range results {
		if report != nil {
			report(outcome)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (b BatchRunner) runTask(ctx context.Context, sem *semaphore.Weighted, req types.DownloadRequest, delay time.Duration) types.DownloadOutcome {
	taskID := b.taskID()
	logger := log.Ctx(ctx).With().Str("task", taskID).Str("app", req.Identifier).Logger()
	ctx = logger.WithContext(ctx)

	outcome := types.DownloadOutcome{
		Identifier: req.Identifier,
		Version:    req.Version,
		TaskID:     taskID,
	}
	if req.HasVersion() && !b.Catalog.Versioned {
		logger.Warn().Msgf("%s does not support downloading specific versions. Will download the latest version for %s", b.Catalog.Title(), req.Identifier)
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return failedOutcome(outcome, err)
	}
	defer sem.Release(1)

	if err := b.sleep(ctx, delay); err != nil {
		return failedOutcome(outcome, err)
	}
	filename, err := b.Download(ctx, req)
	if err != nil {
		logger.Debug().Err(err).Msg("download failed")
		return failedOutcome(outcome, err)
	}
	outcome.Kind = types.DownloadOutcomeSaved
	outcome.Filename = filename
	return outcome
}

// Download resolves req and streams the binary into the output directory,
// returning the saved file name.
func (b BatchRunner) Download(ctx context.Context, req types.DownloadRequest) (string, error) {
	resolved, err := b.Resolver.Resolve(ctx, req)
	if err != nil {
		return "", err
	}
	log.Ctx(ctx).Info().Str("url", resolved.FinalURL).Msg("Downloading APK")

	resp, err := b.Fetcher.Open(ctx, resolved.FinalURL, resolved.Headers)
	if err != nil {
		return "", &StageError{
			Stage:      downloadStage,
			State:      types.ChainStateDone,
			Kind:       FailureTransport,
			Identifier: req.Identifier,
			Msg:        "Failed to download APK: " + shared.ErrorMessage(err),
			Err:        err,
		}
	}
	defer resp.Body.Close()
	if !resp.OK() {
		return "", &StageError{
			Stage:      downloadStage,
			State:      types.ChainStateDone,
			Kind:       FailureHTTPStatus,
			Identifier: req.Identifier,
			Status:     resp.Status,
			Msg:        "Failed to download APK: " + shared.HTTPStatusText(resp.Status),
			Err:        shared.HTTPStatusError(resp.Status, resolved.FinalURL),
		}
	}

	version := req.Version
	if !b.Catalog.Versioned {
		version = ""
	}
	filename := ResolveFilename(resp.Header, req.Identifier, version)
	assert.NotEmpty(ctx, filename, "resolved filename must be set")
	saved, err := b.Output.Save(filename, resp.Body)
	if err != nil {
		return "", &StageError{
			Stage:      downloadStage,
			State:      types.ChainStateDone,
			Kind:       FailureIO,
			Identifier: req.Identifier,
			Msg:        "Failed to save APK: " + shared.ErrorMessage(err),
			Err:        err,
		}
	}
	return saved, nil
}

func (b BatchRunner) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return b.Sleep(ctx, d)
}

func (b BatchRunner) taskID() string {
	if b.NewTaskID == nil {
		return newTaskID()
	}
	return b.NewTaskID()
}

func failedOutcome(outcome types.DownloadOutcome, err error) types.DownloadOutcome {
	outcome.Kind = types.DownloadOutcomeFailed
	outcome.Reason = shared.ErrorMessage(err)
	return outcome
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newTaskID uses UUIDv7 so IDs sort by creation time in logs.
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	return id.String()
}
