package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apkfetch/internal/types"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "1.10.0", b: "1.9.2", want: 1},
		{a: "2.0.0", b: "2.0.0", want: 0},
		{a: "2.0.0rc1", b: "2.0.0", want: -1},
		{a: "1:1.0", b: "2.0", want: 1},
		{a: "abc", b: "abd", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := CompareVersions(tt.a, tt.b)
			switch {
			case tt.want > 0:
				assert.Positive(t, got)
			case tt.want < 0:
				assert.Negative(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestSortVersionEntriesNewestFirst(t *testing.T) {
	entries := []types.VersionEntry{
		{Version: "1.2.0", ReleaseDate: "a"},
		{Version: "1.10.0", ReleaseDate: "b"},
		{Version: "1.9.0", ReleaseDate: "c"},
	}
	SortVersionEntries(entries)
	assert.Equal(t, []types.VersionEntry{
		{Version: "1.10.0", ReleaseDate: "b"},
		{Version: "1.9.0", ReleaseDate: "c"},
		{Version: "1.2.0", ReleaseDate: "a"},
	}, entries)
}

func TestVersionCacheRemembersParseFailures(t *testing.T) {
	cache := newVersionCache()
	_, ok := cache.pepVersion("not a version")
	assert.False(t, ok)
	assert.True(t, cache.failed["pep:not a version"])

	v, ok := cache.pepVersion("1.2.3")
	assert.True(t, ok)
	cached, ok := cache.pepVersion("1.2.3")
	assert.True(t, ok)
	assert.Equal(t, v, cached)
}
