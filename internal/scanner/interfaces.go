// Package scanner - Interface definitions for probe components
package scanner

import (
	"context"
	"net/http"
)

// Response is the part of an HTTP response the probes inspect
type Response struct {
	Status int
	Header http.Header
}

// Fetcher issues a GET request for path on baseURL without following redirects.
// path is sent as given; implementations must not normalize it.
type Fetcher interface {
	Fetch(ctx context.Context, baseURL, path string) (*Response, error)
}

// TextSource yields the currently rendered text of a page
type TextSource func(ctx context.Context) (string, error)
