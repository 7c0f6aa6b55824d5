package types

import (
	"io"
	"net/http"
)

// DownloadRequest names one application to fetch. Version is empty when the
// latest release is wanted.
type DownloadRequest struct {
	Identifier string
	Version    string
}

func (r DownloadRequest) HasVersion() bool {
	return r.Version != ""
}

// FetchResult is one page response. Non-2xx statuses are carried, not
// treated as errors.
type FetchResult struct {
	URL    string
	Status int
	Header http.Header
	Body   string
}

func (r FetchResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// BinaryResponse is an open binary download. Callers must close Body.
type BinaryResponse struct {
	URL    string
	Status int
	Header http.Header
	Body   io.ReadCloser
}

func (r BinaryResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

type StageOutcome struct {
	Kind    StageOutcomeKind
	NextURL string
	Status  int
	Message string
}

// ResolvedDownload is the terminal product of a successful chain.
type ResolvedDownload struct {
	FinalURL          string
	Headers           map[string]string
	SuggestedFilename string
}

type DownloadOutcome struct {
	Kind       DownloadOutcomeKind
	Identifier string
	Version    string
	Filename   string
	Reason     string
	TaskID     string
}

func (o DownloadOutcome) Saved() bool {
	return o.Kind == DownloadOutcomeSaved
}

type VersionEntry struct {
	Version     string
	ReleaseDate string
}

// VersionListing is the listing result for one identifier. Notice lines are
// set instead of entries when the catalog cannot enumerate versions.
type VersionListing struct {
	Identifier string
	Catalog    string
	Entries    []VersionEntry
	Notice     []string
	Err        error
}
