package core

import (
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// LinkExtractor pulls the first capture of a pattern out of an HTML page.
// With a line filter only lines containing every filter substring are
// scanned; without one the pattern runs over the whole document.
type LinkExtractor struct {
	pattern *regexp.Regexp
}

func NewLinkExtractor(pattern string) (LinkExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return LinkExtractor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid extraction pattern: " + pattern).
			WithCause(err)
	}
	if re.NumSubexp() == 0 {
		return LinkExtractor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("extraction pattern has no capture group: " + pattern)
	}
	return LinkExtractor{pattern: re}, nil
}

// Extract returns the first non-empty capture in document order. A miss is reported as
// false, never as a partial value.
func (e LinkExtractor) Extract(body string, filter []string) (string, bool) {
	if len(filter) == 0 {
		return firstCapture(e.pattern, body)
	}
	for _, line := range splitLines(body) {
		if !lineMatches(line, filter) {
			continue
		}
		if capture, ok := firstCapture(e.pattern, line); ok {
			return capture, true
		}
	}
	return "", false
}

// firstCapture returns the first non-empty capture in document order. Within
// one match the group that participated wins, so alternations like
// (?:"(a)"|(b)) yield the branch that matched. Matches whose capture is empty
// are skipped.
func firstCapture(re *regexp.Regexp, text string) (string, bool) {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		for g := 2; g+1 < len(loc); g += 2 {
			if loc[g] < 0 {
				continue
			}
			if loc[g] < loc[g+1] {
				return text[loc[g]:loc[g+1]], true
			}
			break
		}
	}
	return "", false
}

func lineMatches(line string, filter []string) bool {
	for _, needle := range filter {
		if !strings.Contains(line, needle) {
			return false
		}
	}
	return true
}

func splitLines(body string) []string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
