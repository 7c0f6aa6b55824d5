package ports

import (
	"context"

	"apkfetch/internal/types"
)

// PageFetcherPort issues single GET requests. Transport failures are returned
// as errors; non-2xx responses are returned as results with their status.
type PageFetcherPort interface {
	// Fetch reads the whole response body as UTF-8 text.
	Fetch(ctx context.Context, url string, headers map[string]string) (types.FetchResult, error)

	// Open returns the response with its body unread so binaries can be
	// streamed to disk.
	Open(ctx context.Context, url string, headers map[string]string) (types.BinaryResponse, error)
}
