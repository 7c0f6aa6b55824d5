package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"apkfetch/internal/core"
	"apkfetch/internal/types"
)

// ListVersions lists versions for each app in turn. emit is called as each
// listing completes; a failing app does not stop the others.
func (s Service) ListVersions(ctx context.Context, req VersionsRequest, emit func(types.VersionListing)) (VersionsResult, error) {
	if len(req.Apps) == 0 {
		return VersionsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one app identifier is required")
	}
	engine, err := s.engine(req.Source, req.Catalogs, req.Options, req.HTTP)
	if err != nil {
		return VersionsResult{}, err
	}
	lister, err := core.NewVersionLister(engine)
	if err != nil {
		return VersionsResult{}, err
	}
	lister.Sort = req.Sort

	result := VersionsResult{Catalog: engine.Catalog.Title()}
	if !lister.Supported() {
		listing := lister.List(ctx, "")
		if emit != nil {
			emit(listing)
		}
		result.Listings = append(result.Listings, listing)
		return result, nil
	}
	for _, app := range req.Apps {
		if ctx.Err() != nil {
			break
		}
		listing := lister.List(ctx, app.Identifier)
		if emit != nil {
			emit(listing)
		}
		result.Listings = append(result.Listings, listing)
	}
	return result, nil
}
