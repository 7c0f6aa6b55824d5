package app

import "apkfetch/internal/types"

func (s Service) Sources(req SourcesRequest) ([]types.CatalogDefinition, error) {
	return s.Catalogs(req.Catalogs).List()
}
