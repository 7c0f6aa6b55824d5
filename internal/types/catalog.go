package types

// CatalogDefinition describes one web catalog as an ordered chain of
// fetch-and-extract stages.
type CatalogDefinition struct {
	Name            string            `yaml:"name"`
	DisplayName     string            `yaml:"display_name"`
	BaseURL         string            `yaml:"base_url"`
	Versioned       bool              `yaml:"versioned"`
	Options         map[string]string `yaml:"options,omitempty"`
	DownloadHeaders map[string]string `yaml:"download_headers,omitempty"`
	Stages          []StageDefinition `yaml:"stages"`
	Listing         ListingDefinition `yaml:"listing"`
}

// Title returns the human-facing catalog name.
func (c CatalogDefinition) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// StageDefinition is one fetch-and-extract step. Filter lists substrings that
// must all appear on a line for it to be scanned; an empty filter scans the
// whole document.
type StageDefinition struct {
	Name    string            `yaml:"name"`
	State   ChainState        `yaml:"state"`
	When    StageCondition    `yaml:"when,omitempty"`
	Target  string            `yaml:"target"`
	Pattern string            `yaml:"pattern"`
	Filter  []string          `yaml:"filter,omitempty"`
	Miss    MissKind          `yaml:"miss"`
	Label   string            `yaml:"label,omitempty"`
	Action  string            `yaml:"action"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type ListingDefinition struct {
	Supported          bool     `yaml:"supported"`
	Stages             []string `yaml:"stages,omitempty"`
	VersionPattern     string   `yaml:"version_pattern,omitempty"`
	DatePattern        string   `yaml:"date_pattern,omitempty"`
	Window             int      `yaml:"window,omitempty"`
	UnsupportedMessage []string `yaml:"unsupported_message,omitempty"`
}
