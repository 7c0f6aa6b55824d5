package adapters

import (
	"embed"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"apkfetch/internal/ports"
	"apkfetch/internal/shared"
	"apkfetch/internal/types"
)

//go:embed catalogs/*.yaml
var builtinCatalogs embed.FS

// CatalogFileAdapter serves the built-in catalog definitions plus any
// definition files given by the user. User files replace built-ins of the
// same name.
type CatalogFileAdapter struct {
	Files []string
}

func NewCatalogFileAdapter(files []string) CatalogFileAdapter {
	return CatalogFileAdapter{Files: files}
}

func (a CatalogFileAdapter) Load(name string) (types.CatalogDefinition, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return types.CatalogDefinition{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("catalog name is empty")
	}
	catalogs, err := a.all()
	if err != nil {
		return types.CatalogDefinition{}, err
	}
	catalog, ok := catalogs[key]
	if !ok {
		return types.CatalogDefinition{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("unknown catalog: " + name)
	}
	return catalog, nil
}

func (a CatalogFileAdapter) List() ([]types.CatalogDefinition, error) {
	catalogs, err := a.all()
	if err != nil {
		return nil, err
	}
	out := make([]types.CatalogDefinition, 0, len(catalogs))
	for _, catalog := range catalogs {
		out = append(out, catalog)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (a CatalogFileAdapter) all() (map[string]types.CatalogDefinition, error) {
	catalogs := map[string]types.CatalogDefinition{}
	entries, err := builtinCatalogs.ReadDir("catalogs")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read built-in catalogs").
			WithCause(err)
	}
	for _, entry := range entries {
		data, err := builtinCatalogs.ReadFile(path.Join("catalogs", entry.Name()))
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read built-in catalog " + entry.Name()).
				WithCause(err)
		}
		catalog, err := ParseCatalogDefinition(data, entry.Name())
		if err != nil {
			return nil, err
		}
		catalogs[strings.ToLower(catalog.Name)] = catalog
	}
	for _, file := range a.Files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("catalog file not found: " + file).
				WithCause(err)
		}
		catalog, err := ParseCatalogDefinition(data, file)
		if err != nil {
			return nil, err
		}
		catalogs[strings.ToLower(catalog.Name)] = catalog
	}
	return catalogs, nil
}

// ParseCatalogDefinition decodes and validates one catalog YAML document.
func ParseCatalogDefinition(data []byte, source string) (types.CatalogDefinition, error) {
	var catalog types.CatalogDefinition
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return types.CatalogDefinition{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse catalog yaml " + source).
			WithCause(err)
	}
	if err := validateCatalog(catalog, source); err != nil {
		return types.CatalogDefinition{}, err
	}
	return catalog, nil
}

func validateCatalog(catalog types.CatalogDefinition, source string) error {
	if strings.TrimSpace(catalog.Name) == "" {
		return invalidCatalog(source, "catalog name is required")
	}
	if strings.TrimSpace(catalog.BaseURL) == "" {
		return invalidCatalog(source, "base_url is required")
	}
	if len(catalog.Stages) == 0 {
		return invalidCatalog(source, "at least one stage is required")
	}
	seen := map[string]struct{}{}
	for i, stage := range catalog.Stages {
		if strings.TrimSpace(stage.Name) == "" {
			return invalidCatalog(source, "stage "+strconv.Itoa(i)+" has no name")
		}
		if _, ok := seen[stage.Name]; ok {
			return invalidCatalog(source, "duplicate stage name "+stage.Name)
		}
		seen[stage.Name] = struct{}{}
		if strings.TrimSpace(stage.Target) == "" {
			return invalidCatalog(source, "stage "+stage.Name+" has no target")
		}
		switch stage.When {
		case "", types.StageConditionAlways, types.StageConditionVersion, types.StageConditionLatest:
		default:
			return invalidCatalog(source, "stage "+stage.Name+" has unknown condition "+string(stage.When))
		}
		switch stage.Miss {
		case "", types.MissAppNotFound, types.MissVersionNotFound, types.MissLinkNotFound:
		default:
			return invalidCatalog(source, "stage "+stage.Name+" has unknown miss kind "+string(stage.Miss))
		}
		if err := checkPattern(stage.Pattern, catalog.BaseURL); err != nil {
			return invalidCatalog(source, "stage "+stage.Name+": "+shared.ErrorMessage(err))
		}
	}
	if catalog.Listing.Supported {
		if len(catalog.Listing.Stages) == 0 {
			return invalidCatalog(source, "listing requires at least one stage")
		}
		if err := checkPattern(catalog.Listing.VersionPattern, catalog.BaseURL); err != nil {
			return invalidCatalog(source, "listing version pattern: "+shared.ErrorMessage(err))
		}
		if err := checkPattern(catalog.Listing.DatePattern, catalog.BaseURL); err != nil {
			return invalidCatalog(source, "listing date pattern: "+shared.ErrorMessage(err))
		}
		if catalog.Listing.Window < 0 {
			return invalidCatalog(source, "listing window must not be negative")
		}
	}
	return nil
}

func checkPattern(pattern string, base string) error {
	if strings.TrimSpace(pattern) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pattern is empty")
	}
	re, err := regexp.Compile(strings.ReplaceAll(pattern, "{base}", regexp.QuoteMeta(base)))
	if err != nil {
		return err
	}
	if re.NumSubexp() == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pattern has no capture group")
	}
	return nil
}

func invalidCatalog(source string, msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("invalid catalog " + source + ": " + msg)
}

var _ ports.CatalogPort = CatalogFileAdapter{}
