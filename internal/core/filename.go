package core

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var dispositionFilename = regexp.MustCompile(`filename=(?:"([^"]+)"|([^;]+))`)

// ResolveFilename names a downloaded binary. A content-disposition filename
// wins over the synthesized {id}-{version}.apk / {id}.apk forms.
func ResolveFilename(header http.Header, identifier string, version string) string {
	if header != nil {
		if name, ok := FilenameFromDisposition(header.Get("Content-Disposition")); ok {
			return name
		}
	}
	if version != "" {
		return fmt.Sprintf("%s-%s.apk", identifier, version)
	}
	return identifier + ".apk"
}

func FilenameFromDisposition(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	match := dispositionFilename.FindStringSubmatch(value)
	if match == nil {
		return "", false
	}
	name := match[1]
	if name == "" {
		name = strings.Trim(strings.TrimSpace(match[2]), `"`)
	}
	if name == "" {
		return "", false
	}
	return name, true
}
