package core

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apkfetch/internal/types"
)

func newTestEngine(t *testing.T, fetcher *fakeFetcher) *ChainEngine {
	t.Helper()
	engine, err := NewChainEngine(testCatalog(), fetcher, nil)
	require.NoError(t, err)
	return engine
}

func TestChainResolvesDetailURLFromSearchLine(t *testing.T) {
	catalog := types.CatalogDefinition{
		Name:    "combo",
		BaseURL: "https://host",
		Stages: []types.StageDefinition{{
			Name:    "search",
			State:   types.ChainStateSearching,
			Target:  "{base}/search/{id}/",
			Pattern: `href="(/[^/]+/[^/]+/[^"]+)"`,
			Filter:  []string{"{id}"},
			Miss:    types.MissAppNotFound,
		}},
	}
	fetcher := newFakeFetcher()
	fetcher.page("https://host/search/com.example.app/", "<ul>\n<li><a href=\"/other/app/org.other\">other</a></li>\n<li><a href=\"/example/app/com.example.app\">com.example.app</a></li>\n</ul>")
	engine, err := NewChainEngine(catalog, fetcher, nil)
	require.NoError(t, err)

	detail, err := engine.ResolveThrough(context.Background(), types.DownloadRequest{Identifier: "com.example.app"}, []string{"search"})
	require.NoError(t, err)
	assert.Equal(t, "https://host/example/app/com.example.app", detail)
}

func TestChainReportsAppNotFound(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.page(testBase+"/search?q=com.example.app", "<html>\n<a href=\"/apps/org/other/org.other\">org.other</a>\n</html>")
	engine := newTestEngine(t, fetcher)

	_, err := engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "com.example.app"})
	require.Error(t, err)
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, FailureAppNotFound, stageErr.Kind)
	assert.Equal(t, "search", stageErr.Stage)
	assert.True(t, stageErr.NotFound())
	assert.Equal(t, errbuilder.CodeNotFound, stageErr.Code())
	assert.Equal(t, "App com.example.app not found on Test Store", err.Error())
	assert.Contains(t, err.Error(), "not found")
}

func TestChainVersionNotFoundWhenLineLacksDownloadMarker(t *testing.T) {
	fetcher := newFakeFetcher()
	seedApp(fetcher, "com.example.app", "2.0.0")
	detail := testBase + "/apps/com/example/app/com.example.app"
	fetcher.page(detail+"/versions", "<p>Changelog for 1.5.0</p>\n<a class=\"downloadButton\" href=\"/release/com.example.app/2.0.0\">2.0.0</a>\n")
	engine := newTestEngine(t, fetcher)

	_, err := engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "com.example.app", Version: "1.5.0"})
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, FailureVersionNotFound, stageErr.Kind)
	assert.Equal(t, "Version 1.5.0 not found for com.example.app", stageErr.Msg)
}

func TestChainStopsAtFailingStage(t *testing.T) {
	fetcher := newFakeFetcher()
	seedApp(fetcher, "com.example.app")
	detail := testBase + "/apps/com/example/app/com.example.app"
	fetcher.status(detail, http.StatusServiceUnavailable)
	engine := newTestEngine(t, fetcher)

	_, err := engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "com.example.app"})
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "latest", stageErr.Stage)
	assert.Equal(t, FailureHTTPStatus, stageErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, stageErr.Status)
	assert.Equal(t, "Failed to access app page: HTTP 503 Service Unavailable", stageErr.Msg)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, stageErr.Code())

	want := []string{testBase + "/search?q=com.example.app", detail}
	if diff := cmp.Diff(want, fetcher.called()); diff != "" {
		t.Fatalf("unexpected fetches (-want +got):\n%s", diff)
	}
}

func TestChainTransportError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failures[testBase+"/search?q=com.example.app"] = errConnectionRefused
	engine := newTestEngine(t, fetcher)

	_, err := engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "com.example.app"})
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, FailureTransport, stageErr.Kind)
	assert.Equal(t, "Failed to search for app: connection refused", stageErr.Msg)
	assert.Equal(t, errbuilder.CodeInternal, stageErr.Code())
}

func TestChainResolvesLatestAndVersion(t *testing.T) {
	fetcher := newFakeFetcher()
	seedApp(fetcher, "com.example.app", "1.0.0", "1.1.0")
	engine := newTestEngine(t, fetcher)
	ctx := context.Background()

	latest, err := engine.Resolve(ctx, types.DownloadRequest{Identifier: "com.example.app"})
	require.NoError(t, err)
	assert.Equal(t, testBase+"/files/com.example.app.apk", latest.FinalURL)
	assert.Equal(t, map[string]string{"Referer": testBase + "/"}, latest.Headers)

	pinned, err := engine.Resolve(ctx, types.DownloadRequest{Identifier: "com.example.app", Version: "1.1.0"})
	require.NoError(t, err)
	assert.Equal(t, testBase+"/files/com.example.app-1.1.0.apk", pinned.FinalURL)
}

func TestChainUnescapesCapturedLinks(t *testing.T) {
	fetcher := newFakeFetcher()
	seedApp(fetcher, "com.example.app")
	fetcher.page(testBase+"/release/com.example.app/latest", `<a href="/files/get.php?id=7&amp;f=com.example.app.apk">Download APK</a>`)
	engine := newTestEngine(t, fetcher)

	resolved, err := engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "com.example.app"})
	require.NoError(t, err)
	assert.Equal(t, testBase+"/files/get.php?id=7&f=com.example.app.apk", resolved.FinalURL)
}

func TestChainIgnoresVersionForUnversionedCatalog(t *testing.T) {
	catalog := testCatalog()
	catalog.Versioned = false
	fetcher := newFakeFetcher()
	seedApp(fetcher, "com.example.app")
	engine, err := NewChainEngine(catalog, fetcher, nil)
	require.NoError(t, err)

	req := types.DownloadRequest{Identifier: "com.example.app", Version: "9.9"}
	assert.Equal(t, "", engine.EffectiveVersion(req))
	resolved, err := engine.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, testBase+"/files/com.example.app.apk", resolved.FinalURL)
}

func TestChainExpandsOptions(t *testing.T) {
	catalog := testCatalog()
	catalog.Options = map[string]string{"arch": "arm64-v8a", "lang": "en"}
	catalog.Stages[0].Target = "{base}/search?q={id}&arch={opt:arch}&hl={opt:lang}"
	fetcher := newFakeFetcher()
	engine, err := NewChainEngine(catalog, fetcher, map[string]string{"lang": "de"})
	require.NoError(t, err)

	_, err = engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "a b"})
	require.Error(t, err)
	assert.Equal(t, []string{testBase + "/search?q=a+b&arch=arm64-v8a&hl=de"}, fetcher.called())
}

func TestChainRejectsEmptyIdentifier(t *testing.T) {
	engine := newTestEngine(t, newFakeFetcher())
	_, err := engine.Resolve(context.Background(), types.DownloadRequest{Identifier: "  "})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestNewChainEngineValidation(t *testing.T) {
	_, err := NewChainEngine(testCatalog(), nil, nil)
	require.Error(t, err)

	catalog := testCatalog()
	catalog.Stages = nil
	_, err = NewChainEngine(catalog, newFakeFetcher(), nil)
	require.Error(t, err)

	catalog = testCatalog()
	catalog.Stages[0].Pattern = `href="/no/group"`
	_, err = NewChainEngine(catalog, newFakeFetcher(), nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestResolveThroughRequiresKnownStage(t *testing.T) {
	engine := newTestEngine(t, newFakeFetcher())
	_, err := engine.ResolveThrough(context.Background(), types.DownloadRequest{Identifier: "x"}, []string{"missing"})
	require.Error(t, err)
}
