package core

import (
	"net/url"
	"regexp"
	"strings"

	"apkfetch/internal/shared"
)

var placeholderPattern = regexp.MustCompile(`\{(base|id|version|prev|opt:[A-Za-z0-9_.-]+)\}`)

// templateVars holds the values a catalog definition may reference.
type templateVars struct {
	base    string
	id      string
	version string
	prev    string
	options map[string]string
}

// expand substitutes placeholders. With escape set, request-supplied values
// are query-escaped so they can sit inside a URL.
func (v templateVars) expand(tmpl string, escape bool) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := token[1 : len(token)-1]
		var value string
		userValue := true
		switch {
		case name == "base":
			value, userValue = strings.TrimRight(v.base, "/"), false
		case name == "prev":
			value, userValue = v.prev, false
		case name == "id":
			value = v.id
		case name == "version":
			value = v.version
		default:
			value = v.options[strings.TrimPrefix(name, "opt:")]
		}
		if escape && userValue {
			return url.QueryEscape(value)
		}
		return value
	})
}

func (v templateVars) expandAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, v.expand(value, false))
	}
	return out
}

func (v templateVars) expandHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for key, value := range headers {
		out[key] = v.expand(value, false)
	}
	return out
}

// expandPattern only substitutes {base}, quoted for use inside a regexp.
func expandPattern(pattern string, base string) string {
	return strings.ReplaceAll(pattern, "{base}", regexp.QuoteMeta(strings.TrimRight(base, "/")))
}

// absoluteURL keeps absolute links and prefixes everything else with the
// origin of base.
func absoluteURL(base string, link string) string {
	link = strings.TrimSpace(link)
	if shared.IsAbsoluteURL(link) {
		return link
	}
	origin := strings.TrimRight(base, "/")
	scheme := "https"
	if parsed, err := url.Parse(base); err == nil && parsed.Host != "" {
		origin = parsed.Scheme + "://" + parsed.Host
		scheme = parsed.Scheme
	}
	if strings.HasPrefix(link, "//") {
		return scheme + ":" + link
	}
	if strings.HasPrefix(link, "/") {
		return origin + link
	}
	return origin + "/" + link
}
