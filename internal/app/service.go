package app

import (
	"apkfetch/internal/adapters"
	"apkfetch/internal/ports"
)

// DefaultSource is the catalog used when none is named.
const DefaultSource = "apkmirror"

type Service struct {
	Catalogs   func(files []string) ports.CatalogPort
	NewFetcher func(cfg HTTPConfig) ports.PageFetcherPort
	NewOutput  func(dir string) ports.OutputPort
}

func NewService() Service {
	return Service{
		Catalogs: func(files []string) ports.CatalogPort {
			return adapters.NewCatalogFileAdapter(files)
		},
		NewFetcher: func(cfg HTTPConfig) ports.PageFetcherPort {
			fetcher := adapters.NewHTTPFetcherAdapter(cfg.TimeoutSec, cfg.RequestsPerSecond)
			if cfg.Retries <= 0 {
				return fetcher
			}
			return adapters.NewRetryingFetcher(fetcher, cfg.Retries, cfg.RetryDelayMs)
		},
		NewOutput: func(dir string) ports.OutputPort {
			return adapters.NewOutputDirAdapter(dir)
		},
	}
}
