package core

import (
	"context"
	"fmt"
	"html"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apkfetch/internal/ports"
	"apkfetch/internal/shared"
	"apkfetch/internal/types"
)

type compiledStage struct {
	def       types.StageDefinition
	extractor LinkExtractor
}

// ChainEngine walks a catalog's stage sequence for one request at a time. It
// holds no per-request state and is safe for concurrent use.
type ChainEngine struct {
	Catalog types.CatalogDefinition
	Fetcher ports.PageFetcherPort
	options map[string]string
	stages  []compiledStage
}

func NewChainEngine(catalog types.CatalogDefinition, fetcher ports.PageFetcherPort, options map[string]string) (*ChainEngine, error) {
	if fetcher == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("chain engine requires a page fetcher")
	}
	if strings.TrimSpace(catalog.BaseURL) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("catalog " + catalog.Name + " has no base url")
	}
	if len(catalog.Stages) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("catalog " + catalog.Name + " has no stages")
	}
	stages := make([]compiledStage, 0, len(catalog.Stages))
	for _, def := range catalog.Stages {
		extractor, err := NewLinkExtractor(expandPattern(def.Pattern, catalog.BaseURL))
		if err != nil {
			return nil, err
		}
		stages = append(stages, compiledStage{def: def, extractor: extractor})
	}
	return &ChainEngine{
		Catalog: catalog,
		Fetcher: fetcher,
		options: mergeOptions(catalog.Options, options),
		stages:  stages,
	}, nil
}

// Resolve runs every stage that applies to req and returns the final binary
// URL. Failures are *StageError values naming the stage that stopped the
// chain; no later stage is attempted.
func (e *ChainEngine) Resolve(ctx context.Context, req types.DownloadRequest) (types.ResolvedDownload, error) {
	if strings.TrimSpace(req.Identifier) == "" {
		return types.ResolvedDownload{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("app identifier is empty")
	}
	log.Ctx(ctx).Info().
		Str("app", req.Identifier).
		Str("catalog", e.Catalog.Title()).
		Msgf("Searching for %s on %s", req.Identifier, e.Catalog.Title())
	vars, err := e.run(ctx, req, e.applicableStages(req))
	if err != nil {
		return types.ResolvedDownload{}, err
	}
	return types.ResolvedDownload{
		FinalURL: vars.prev,
		Headers:  vars.expandHeaders(e.Catalog.DownloadHeaders),
	}, nil
}

// ResolveThrough runs only the named stages, in catalog order, and returns
// the URL the last of them produced.
func (e *ChainEngine) ResolveThrough(ctx context.Context, req types.DownloadRequest, names []string) (string, error) {
	wanted := map[string]struct{}{}
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	var selected []compiledStage
	for _, stage := range e.applicableStages(req) {
		if _, ok := wanted[stage.def.Name]; ok {
			selected = append(selected, stage)
		}
	}
	if len(selected) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("catalog " + e.Catalog.Name + " has none of the requested stages")
	}
	vars, err := e.run(ctx, req, selected)
	if err != nil {
		return "", err
	}
	return vars.prev, nil
}

// EffectiveVersion is the version the chain will honor for req; catalogs
// that cannot select versions always resolve the latest release.
func (e *ChainEngine) EffectiveVersion(req types.DownloadRequest) string {
	if !e.Catalog.Versioned {
		return ""
	}
	return req.Version
}

func (e *ChainEngine) applicableStages(req types.DownloadRequest) []compiledStage {
	hasVersion := e.EffectiveVersion(req) != ""
	var out []compiledStage
	for _, stage := range e.stages {
		switch stage.def.When {
		case types.StageConditionVersion:
			if !hasVersion {
				continue
			}
		case types.StageConditionLatest:
			if hasVersion {
				continue
			}
		}
		out = append(out, stage)
	}
	return out
}

func (e *ChainEngine) run(ctx context.Context, req types.DownloadRequest, stages []compiledStage) (templateVars, error) {
	vars := templateVars{
		base:    e.Catalog.BaseURL,
		id:      req.Identifier,
		version: e.EffectiveVersion(req),
		options: e.options,
	}
	for _, stage := range stages {
		target := absoluteURL(e.Catalog.BaseURL, vars.expand(stage.def.Target, true))
		outcome := e.step(ctx, stage, target, vars)
		if outcome.Kind != types.StageOutcomeNextURL {
			return vars, e.stageError(stage, req, vars, target, outcome)
		}
		assert.NotEmpty(ctx, outcome.NextURL, "stage "+stage.def.Name+" resolved an empty url")
		log.Ctx(ctx).Info().
			Str("app", req.Identifier).
			Str("stage", stage.def.Name).
			Str("state", string(stage.def.State)).
			Str("url", outcome.NextURL).
			Msg("stage resolved")
		vars.prev = outcome.NextURL
	}
	return vars, nil
}

// step performs exactly one fetch and at most one extraction.
func (e *ChainEngine) step(ctx context.Context, stage compiledStage, target string, vars templateVars) types.StageOutcome {
	log.Ctx(ctx).Debug().Str("stage", stage.def.Name).Str("url", target).Msg("fetching stage page")
	result, err := e.Fetcher.Fetch(ctx, target, vars.expandHeaders(stage.def.Headers))
	if err != nil {
		return types.StageOutcome{Kind: types.StageOutcomeTransportError, Message: shared.ErrorMessage(err)}
	}
	if !result.OK() {
		return types.StageOutcome{Kind: types.StageOutcomeHTTPError, Status: result.Status}
	}
	capture, ok := stage.extractor.Extract(result.Body, vars.expandAll(stage.def.Filter))
	if !ok {
		return types.StageOutcome{Kind: types.StageOutcomeNotFound}
	}
	return types.StageOutcome{Kind: types.StageOutcomeNextURL, NextURL: absoluteURL(e.Catalog.BaseURL, html.UnescapeString(capture))}
}

func (e *ChainEngine) stageError(stage compiledStage, req types.DownloadRequest, vars templateVars, target string, outcome types.StageOutcome) *StageError {
	stageErr := &StageError{
		Stage:      stage.def.Name,
		State:      stage.def.State,
		Identifier: req.Identifier,
		Status:     outcome.Status,
	}
	action := stage.def.Action
	if action == "" {
		action = "access " + stage.def.Name + " page"
	}
	switch outcome.Kind {
	case types.StageOutcomeTransportError:
		stageErr.Kind = FailureTransport
		stageErr.Msg = fmt.Sprintf("Failed to %s: %s", action, outcome.Message)
	case types.StageOutcomeHTTPError:
		stageErr.Kind = FailureHTTPStatus
		stageErr.Msg = fmt.Sprintf("Failed to %s: %s", action, shared.HTTPStatusText(outcome.Status))
		stageErr.Err = shared.HTTPStatusError(outcome.Status, target)
	default:
		switch stage.def.Miss {
		case types.MissAppNotFound:
			stageErr.Kind = FailureAppNotFound
			stageErr.Msg = fmt.Sprintf("App %s not found on %s", req.Identifier, e.Catalog.Title())
		case types.MissVersionNotFound:
			stageErr.Kind = FailureVersionNotFound
			stageErr.Msg = fmt.Sprintf("Version %s not found for %s", vars.version, req.Identifier)
		default:
			label := stage.def.Label
			if label == "" {
				label = "Download link"
			}
			stageErr.Kind = FailureLinkNotFound
			stageErr.Msg = fmt.Sprintf("%s not found for %s", label, req.Identifier)
		}
	}
	return stageErr
}

func mergeOptions(defaults map[string]string, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(overrides))
	for key, value := range defaults {
		out[key] = value
	}
	for key, value := range overrides {
		out[key] = value
	}
	return out
}

var _ ports.ResolverPort = (*ChainEngine)(nil)
