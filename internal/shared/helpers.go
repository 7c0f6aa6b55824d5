// Package shared provides common utility functions used across multiple
// packages in the apkfetch codebase.
package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// HTTPStatusText renders a status the way result lines show it, e.g.
// "HTTP 503 Service Unavailable".
func HTTPStatusText(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	return fmt.Sprintf("HTTP %d %s", status, text)
}

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// ErrorMessage returns the builder message for coded errors and the plain
// error text otherwise.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}

// IsAbsoluteURL reports whether value carries an http(s) scheme.
func IsAbsoluteURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
