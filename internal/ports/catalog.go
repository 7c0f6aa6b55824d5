package ports

import "apkfetch/internal/types"

// CatalogPort provides catalog chain definitions by name.
type CatalogPort interface {
	Load(name string) (types.CatalogDefinition, error)
	List() ([]types.CatalogDefinition, error)
}
