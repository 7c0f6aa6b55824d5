package app

import "apkfetch/internal/types"

type HTTPConfig struct {
	TimeoutSec        int
	Retries           int
	RetryDelayMs      int
	RequestsPerSecond float64
}

type DownloadRequest struct {
	Apps      []types.DownloadRequest
	Source    string
	Catalogs  []string
	Options   map[string]string
	Parallel  int
	SleepMs   int
	OutputDir string
	MinFreeMB int
	HTTP      HTTPConfig
}

type DownloadResult struct {
	Outcomes []types.DownloadOutcome
	Saved    int
	Failed   int
}

type VersionsRequest struct {
	Apps     []types.DownloadRequest
	Source   string
	Catalogs []string
	Options  map[string]string
	Sort     bool
	HTTP     HTTPConfig
}

type VersionsResult struct {
	Catalog  string
	Listings []types.VersionListing
}

type SourcesRequest struct {
	Catalogs []string
}
