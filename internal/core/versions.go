package core

import (
	"context"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apkfetch/internal/shared"
	"apkfetch/internal/types"
)

const defaultDateWindow = 5

// VersionLister enumerates the versions a catalog shows on an app's detail
// page. It reuses the chain's fetch and extract stages and never downloads.
type VersionLister struct {
	Engine      *ChainEngine
	Sort        bool
	versionRe   *regexp.Regexp
	dateRe      *regexp.Regexp
	window      int
	stageNames  []string
	unsupported []string
}

func NewVersionLister(engine *ChainEngine) (VersionLister, error) {
	listing := engine.Catalog.Listing
	lister := VersionLister{Engine: engine, unsupported: listing.UnsupportedMessage}
	if !listing.Supported {
		return lister, nil
	}
	versionRe, err := regexp.Compile(listing.VersionPattern)
	if err != nil {
		return VersionLister{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid version pattern for " + engine.Catalog.Name).
			WithCause(err)
	}
	dateRe, err := regexp.Compile(listing.DatePattern)
	if err != nil {
		return VersionLister{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid date pattern for " + engine.Catalog.Name).
			WithCause(err)
	}
	window := listing.Window
	if window <= 0 {
		window = defaultDateWindow
	}
	lister.versionRe = versionRe
	lister.dateRe = dateRe
	lister.window = window
	lister.stageNames = listing.Stages
	return lister, nil
}

func (l VersionLister) Supported() bool {
	return l.versionRe != nil
}

// List returns the listing for one identifier. Errors are carried in the
// listing so callers can continue with the next identifier.
func (l VersionLister) List(ctx context.Context, identifier string) types.VersionListing {
	listing := types.VersionListing{Identifier: identifier, Catalog: l.Engine.Catalog.Title()}
	if !l.Supported() {
		listing.Notice = l.unsupported
		return listing
	}
	req := types.DownloadRequest{Identifier: identifier}
	detailURL, err := l.Engine.ResolveThrough(ctx, req, l.stageNames)
	if err != nil {
		listing.Err = err
		return listing
	}
	result, err := l.Engine.Fetcher.Fetch(ctx, detailURL, nil)
	if err != nil {
		listing.Err = &StageError{
			Stage:      "listing",
			State:      types.ChainStateLocatingDetailPage,
			Kind:       FailureTransport,
			Identifier: identifier,
			Msg:        "Error accessing app page for " + identifier + ": " + shared.ErrorMessage(err),
			Err:        err,
		}
		return listing
	}
	if !result.OK() {
		listing.Err = &StageError{
			Stage:      "listing",
			State:      types.ChainStateLocatingDetailPage,
			Kind:       FailureHTTPStatus,
			Identifier: identifier,
			Status:     result.Status,
			Msg:        "Failed to access app page for " + identifier + ": " + shared.HTTPStatusText(result.Status),
			Err:        shared.HTTPStatusError(result.Status, detailURL),
		}
		return listing
	}
	listing.Entries = ScanVersions(result.Body, l.versionRe, l.dateRe, l.window)
	if l.Sort {
		SortVersionEntries(listing.Entries)
	}
	log.Ctx(ctx).Debug().Str("app", identifier).Int("versions", len(listing.Entries)).Msg("versions listed")
	return listing
}

// ScanVersions finds every version marker in document order and pairs it
// with a date within window lines counting the marker's own line. Versions
// without a nearby date get types.UnknownReleaseDate.
func ScanVersions(body string, versionRe *regexp.Regexp, dateRe *regexp.Regexp, window int) []types.VersionEntry {
	lines := splitLines(body)
	var entries []types.VersionEntry
	for i, line := range lines {
		for _, match := range versionRe.FindAllStringSubmatch(line, -1) {
			if len(match) < 2 {
				continue
			}
			version := strings.TrimSpace(match[1])
			if version == "" {
				continue
			}
			entries = append(entries, types.VersionEntry{
				Version:     version,
				ReleaseDate: nearestDate(lines, i, versionRe, dateRe, window),
			})
		}
	}
	return entries
}

// nearestDate scans window lines starting at the version marker itself and
// stops at the next version marker so a version without its own date never
// borrows the following version's.
func nearestDate(lines []string, index int, versionRe *regexp.Regexp, dateRe *regexp.Regexp, window int) string {
	if window < 1 {
		window = 1
	}
	end := index + window - 1
	if end >= len(lines) {
		end = len(lines) - 1
	}
	for i := index; i <= end; i++ {
		if i > index && versionRe.MatchString(lines[i]) {
			break
		}
		if match := dateRe.FindStringSubmatch(lines[i]); len(match) > 1 {
			if date := strings.TrimSpace(match[1]); date != "" {
				return date
			}
		}
	}
	return types.UnknownReleaseDate
}
