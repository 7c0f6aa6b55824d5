package core

import (
	"sort"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"

	"apkfetch/internal/types"
)

// versionCache memoizes parsed versions while sorting a listing.
type versionCache struct {
	pep    map[string]pep440.Version
	deb    map[string]debversion.Version
	failed map[string]bool
}

func newVersionCache() *versionCache {
	return &versionCache{
		pep:    map[string]pep440.Version{},
		deb:    map[string]debversion.Version{},
		failed: map[string]bool{},
	}
}

func (c *versionCache) pepVersion(value string) (pep440.Version, bool) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, true
	}
	if c.failed["pep:"+value] {
		return pep440.Version{}, false
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		c.failed["pep:"+value] = true
		return pep440.Version{}, false
	}
	c.pep[value] = parsed
	return parsed, true
}

func (c *versionCache) debVersion(value string) (debversion.Version, bool) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, true
	}
	if c.failed["deb:"+value] {
		return debversion.Version{}, false
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		c.failed["deb:"+value] = true
		return debversion.Version{}, false
	}
	c.deb[value] = parsed
	return parsed, true
}

// compare tries PEP 440 ordering, then Debian ordering, then plain string
// comparison. Android version names follow no single scheme.
func (c *versionCache) compare(a string, b string) int {
	if pa, ok := c.pepVersion(a); ok {
		if pb, ok := c.pepVersion(b); ok {
			return pa.Compare(pb)
		}
	}
	if da, ok := c.debVersion(a); ok {
		if db, ok := c.debVersion(b); ok {
			return da.Compare(db)
		}
	}
	return strings.Compare(a, b)
}

// SortVersionEntries orders entries newest first, keeping page order for
// versions that compare equal.
func SortVersionEntries(entries []types.VersionEntry) {
	cache := newVersionCache()
	sort.SliceStable(entries, func(i, j int) bool {
		return cache.compare(entries[i].Version, entries[j].Version) > 0
	})
}

func CompareVersions(a string, b string) int {
	return newVersionCache().compare(a, b)
}
