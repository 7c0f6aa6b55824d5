package core

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"apkfetch/internal/types"
)

// FailureKind classifies why a download did not complete.
type FailureKind string

const (
	FailureAppNotFound     FailureKind = "app_not_found"
	FailureVersionNotFound FailureKind = "version_not_found"
	// FailureLinkNotFound means a page loaded but the expected link was not
	// in it, which usually means the catalog changed its markup.
	FailureLinkNotFound FailureKind = "link_not_found"
	FailureHTTPStatus   FailureKind = "http_status"
	FailureTransport    FailureKind = "transport"
	FailureIO           FailureKind = "io"
)

// StageError reports the single stage at which a resolution or download
// stopped.
type StageError struct {
	Stage      string
	State      types.ChainState
	Kind       FailureKind
	Identifier string
	Status     int
	Msg        string
	Err        error
}

func (e *StageError) Error() string {
	return e.Msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the failure was a missing app, version or link.
func (e *StageError) NotFound() bool {
	switch e.Kind {
	case FailureAppNotFound, FailureVersionNotFound, FailureLinkNotFound:
		return true
	}
	return false
}

func (e *StageError) Code() errbuilder.ErrCode {
	switch e.Kind {
	case FailureAppNotFound, FailureVersionNotFound:
		return errbuilder.CodeNotFound
	case FailureLinkNotFound, FailureHTTPStatus:
		return errbuilder.CodeFailedPrecondition
	default:
		return errbuilder.CodeInternal
	}
}
