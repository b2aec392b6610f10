// Package source fetches the versions package registries offer and folds
// them into the snapshot the analyzer consumes.
package source

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the package does not exist in a source.
	ErrNotFound = errors.New("package not found")
	// ErrUpstreamDown means a source keeps failing and its breaker is open.
	ErrUpstreamDown = errors.New("upstream registry unavailable")
)

// Release is a version a source offers for a package.
type Release struct {
	Version string
	Link    string
}

// Source lists the versions it knows for a package.
type Source interface {
	Name() string
	Versions(ctx context.Context, pkg string) ([]Release, error)
}

// HTTPError represents an unexpected HTTP response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NotFoundError wraps ErrNotFound with the source and package.
type NotFoundError struct {
	Source  string
	Package string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: package %s not found", e.Source, e.Package)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
