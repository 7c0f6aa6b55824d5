package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apkfetch/internal/types"
)

func TestParseAppRef(t *testing.T) {
	tests := []struct {
		in   string
		want types.DownloadRequest
	}{
		{in: "com.example.app", want: types.DownloadRequest{Identifier: "com.example.app"}},
		{in: " com.example.app@1.2.3 ", want: types.DownloadRequest{Identifier: "com.example.app", Version: "1.2.3"}},
		{in: "com.example.app@", want: types.DownloadRequest{Identifier: "com.example.app"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAppRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAppRef("@1.0")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestParseAppList(t *testing.T) {
	content := strings.Join([]string{
		"# apps to mirror",
		"com.example.app,1.0.0",
		"",
		"org.example.tool",
		"  net.example.reader , 2.1",
		",orphan",
	}, "\n")
	got, err := parseAppList(strings.NewReader(content))
	require.NoError(t, err)
	want := []types.DownloadRequest{
		{Identifier: "com.example.app", Version: "1.0.0"},
		{Identifier: "org.example.tool"},
		{Identifier: "net.example.reader", Version: "2.1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected apps (-want +got):\n%s", diff)
	}
}

func TestCollectAppsKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.csv")
	require.NoError(t, os.WriteFile(path, []byte("b.list\nc.list,3\n"), 0644))

	got, err := CollectApps([]string{"a.arg@1"}, path)
	require.NoError(t, err)
	assert.Equal(t, []types.DownloadRequest{
		{Identifier: "a.arg", Version: "1"},
		{Identifier: "b.list"},
		{Identifier: "c.list", Version: "3"},
	}, got)
}

func TestCollectAppsMissingListFile(t *testing.T) {
	_, err := CollectApps(nil, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
