// Package testutil provides a fake app catalog shared by unit and
// integration tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root, assuming the
// test runs two directories below it.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// FakeCatalogYAML is a catalog definition for the pages FakeStore serves.
const FakeCatalogYAML = `name: fakestore
display_name: Fake Store
base_url: %s
versioned: true
download_headers:
  Referer: "{base}/"
stages:
  - name: search
    state: searching
    target: "{base}/search/{id}/"
    pattern: 'href="(/apps/[^"]+)"'
    filter: ["appRow", "{id}"]
    miss: app_not_found
    action: search for app
  - name: version
    state: locating_version_or_download_page
    when: version
    target: "{prev}/versions/{version}"
    pattern: 'href="([^"]+\.apk)"'
    filter: ["downloadButton"]
    miss: version_not_found
    action: access version page
  - name: latest
    state: locating_final_binary_url
    when: latest
    target: "{prev}"
    pattern: 'href="([^"]+\.apk)"'
    filter: ["downloadButton"]
    miss: link_not_found
    label: Latest version link
    action: access app page
listing:
  supported: true
  stages: [search]
  version_pattern: '<span class="ver">([^<]+)</span>'
  date_pattern: '<span class="date">([^<]+)</span>'
  window: 3
`

type FakeVersion struct {
	Version string
	Date    string
}

type FakeApp struct {
	Versions []FakeVersion
	// Disposition, when set, is sent as the attachment filename.
	Disposition string
	// Payload is the binary body; defaults to "apk:<id>".
	Payload string
}

// FakeStore serves a small catalog site:
//
//	/search/{id}/                 search results
//	/apps/{id}                    detail page with version list
//	/apps/{id}/versions/{v}       version page
//	/files/{id}[-{v}].apk         binary
type FakeStore struct {
	Apps map[string]FakeApp

	mu       sync.Mutex
	requests []string
}

// Serve starts the store on an httptest server closed at test cleanup.
func (s *FakeStore) Serve(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)
	return server
}

// Requests returns the paths served so far, in arrival order.
func (s *FakeStore) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *FakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	s.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "search":
		s.search(w, parts[1])
	case len(parts) == 2 && parts[0] == "apps":
		s.detail(w, parts[1])
	case len(parts) == 4 && parts[0] == "apps" && parts[2] == "versions":
		s.version(w, parts[1], parts[3])
	case len(parts) == 2 && parts[0] == "files":
		s.file(w, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (s *FakeStore) search(w http.ResponseWriter, id string) {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	if _, ok := s.Apps[id]; ok {
		fmt.Fprintf(&b, "<div class=\"appRow\"><a href=\"/apps/%s\">%s</a></div>\n", id, id)
	}
	b.WriteString("<a href=\"/apps/unrelated\">unrelated</a>\n</body></html>\n")
	writeHTML(w, b.String())
}

func (s *FakeStore) detail(w http.ResponseWriter, id string) {
	app, ok := s.Apps[id]
	if !ok {
		http.NotFound(w, nil)
		return
	}
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<a class=\"downloadButton\" href=\"/files/%s.apk\">Download</a>\n", id)
	for _, v := range app.Versions {
		fmt.Fprintf(&b, "<div class=\"row\">\n<span class=\"ver\">%s</span>\n", v.Version)
		if v.Date != "" {
			fmt.Fprintf(&b, "<span class=\"date\">%s</span>\n", v.Date)
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</body></html>\n")
	writeHTML(w, b.String())
}

func (s *FakeStore) version(w http.ResponseWriter, id string, version string) {
	app, ok := s.Apps[id]
	if !ok {
		http.NotFound(w, nil)
		return
	}
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h1>%s %s</h1>\n", id, version)
	for _, v := range app.Versions {
		if v.Version == version {
			fmt.Fprintf(&b, "<a class=\"downloadButton\" href=\"/files/%s-%s.apk\">Download %s</a>\n", id, version, version)
		}
	}
	b.WriteString("</body></html>\n")
	writeHTML(w, b.String())
}

func (s *FakeStore) file(w http.ResponseWriter, name string) {
	base := strings.TrimSuffix(name, ".apk")
	for id, app := range s.Apps {
		if base != id && !strings.HasPrefix(base, id+"-") {
			continue
		}
		if app.Disposition != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.Disposition))
		}
		w.Header().Set("Content-Type", "application/vnd.android.package-archive")
		payload := app.Payload
		if payload == "" {
			payload = "apk:" + id
		}
		_, _ = w.Write([]byte(payload))
		return
	}
	http.NotFound(w, nil)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// WriteCatalog writes FakeCatalogYAML for baseURL into dir and returns its
// path.
func WriteCatalog(t *testing.T, dir string, baseURL string) string {
	t.Helper()
	path := filepath.Join(dir, "fakestore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(FakeCatalogYAML, baseURL)), 0644))
	return path
}
