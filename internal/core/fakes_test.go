package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"apkfetch/internal/types"
)

type fakeFetcher struct {
	mu          sync.Mutex
	pages       map[string]types.FetchResult
	binaries    map[string]binaryStub
	failures    map[string]error
	delay       time.Duration
	calls       []string
	inFlight    int
	maxInFlight int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    map[string]types.FetchResult{},
		binaries: map[string]binaryStub{},
		failures: map[string]error{},
	}
}

func (f *fakeFetcher) page(url string, body string) {
	f.pages[url] = types.FetchResult{URL: url, Status: http.StatusOK, Body: body}
}

func (f *fakeFetcher) status(url string, status int) {
	f.pages[url] = types.FetchResult{URL: url, Status: status}
}

type binaryStub struct {
	header http.Header
	body   string
}

func (f *fakeFetcher) binary(url string, header http.Header, body string) {
	f.binaries[url] = binaryStub{header: header, body: body}
}

func (f *fakeFetcher) enter(url string) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeFetcher) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ map[string]string) (types.FetchResult, error) {
	f.enter(url)
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[url]; ok {
		return types.FetchResult{}, err
	}
	if result, ok := f.pages[url]; ok {
		return result, nil
	}
	return types.FetchResult{URL: url, Status: http.StatusNotFound}, nil
}

func (f *fakeFetcher) Open(_ context.Context, url string, _ map[string]string) (types.BinaryResponse, error) {
	f.enter(url)
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[url]; ok {
		return types.BinaryResponse{}, err
	}
	if stub, ok := f.binaries[url]; ok {
		return types.BinaryResponse{
			URL:    url,
			Status: http.StatusOK,
			Header: stub.header,
			Body:   io.NopCloser(strings.NewReader(stub.body)),
		}, nil
	}
	return types.BinaryResponse{URL: url, Status: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (f *fakeFetcher) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memOutput struct {
	mu    sync.Mutex
	files map[string]string
	fail  error
}

func newMemOutput() *memOutput {
	return &memOutput{files: map[string]string{}}
}

func (m *memOutput) Save(filename string, body io.Reader) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename] = string(data)
	return filename, nil
}

func (m *memOutput) CheckCapacity(context.Context, uint64) error {
	return nil
}

var errConnectionRefused = errors.New("connection refused")

const testBase = "https://host"

// testCatalog mirrors a versioned catalog with a search page, an optional
// version page and a final download page.
func testCatalog() types.CatalogDefinition {
	return types.CatalogDefinition{
		Name:        "teststore",
		DisplayName: "Test Store",
		BaseURL:     testBase,
		Versioned:   true,
		DownloadHeaders: map[string]string{
			"Referer": "{base}/",
		},
		Stages: []types.StageDefinition{
			{
				Name:    "search",
				State:   types.ChainStateSearching,
				Target:  "{base}/search?q={id}",
				Pattern: `href="(/[^/"]+/[^/"]+/[^"]+)"`,
				Filter:  []string{"{id}"},
				Miss:    types.MissAppNotFound,
				Action:  "search for app",
			},
			{
				Name:    "version",
				State:   types.ChainStateLocatingDetailPage,
				When:    types.StageConditionVersion,
				Target:  "{prev}/versions",
				Pattern: `href="([^"]+)"`,
				Filter:  []string{"{version}", "downloadButton"},
				Miss:    types.MissVersionNotFound,
				Action:  "search for version",
			},
			{
				Name:    "latest",
				State:   types.ChainStateLocatingDetailPage,
				When:    types.StageConditionLatest,
				Target:  "{prev}",
				Pattern: `href="([^"]+)"`,
				Filter:  []string{"downloadButton"},
				Miss:    types.MissLinkNotFound,
				Label:   "Latest version link",
				Action:  "access app page",
			},
			{
				Name:    "download",
				State:   types.ChainStateLocatingBinary,
				Target:  "{prev}",
				Pattern: `href="([^"]+\.apk)"`,
				Miss:    types.MissLinkNotFound,
				Label:   "Final download link",
				Action:  "access download page",
			},
		},
		Listing: types.ListingDefinition{
			Supported:      true,
			Stages:         []string{"search"},
			VersionPattern: `<span class="ver">([^<]+)</span>`,
			DatePattern:    `<span class="date">([^<]+)</span>`,
			Window:         3,
		},
	}
}

// seedApp registers the pages for one app in testCatalog's layout.
func seedApp(f *fakeFetcher, id string, versions ...string) {
	detail := testBase + "/apps/" + strings.ReplaceAll(id, ".", "/") + "/" + id
	f.page(testBase+"/search?q="+id, "<html>\n<a href=\"/apps/"+strings.ReplaceAll(id, ".", "/")+"/"+id+"\">"+id+"</a>\n</html>")
	f.page(detail, "<a class=\"downloadButton\" href=\"/release/"+id+"/latest\">Download</a>")
	var versionLines strings.Builder
	for _, v := range versions {
		versionLines.WriteString("<a class=\"downloadButton\" href=\"/release/" + id + "/" + v + "\">" + v + "</a>\n")
	}
	f.page(detail+"/versions", versionLines.String())
	f.page(testBase+"/release/"+id+"/latest", "<a href=\"/files/"+id+".apk\">Download APK</a>")
	f.binary(testBase+"/files/"+id+".apk", http.Header{}, "latest:"+id)
	for _, v := range versions {
		f.page(testBase+"/release/"+id+"/"+v, "<a href=\"/files/"+id+"-"+v+".apk\">Download APK</a>")
		f.binary(testBase+"/files/"+id+"-"+v+".apk", http.Header{}, v+":"+id)
	}
}
