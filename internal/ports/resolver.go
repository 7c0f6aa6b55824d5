package ports

import (
	"context"

	"apkfetch/internal/types"
)

// ResolverPort turns a download request into the final binary URL.
type ResolverPort interface {
	Resolve(ctx context.Context, req types.DownloadRequest) (types.ResolvedDownload, error)
}
