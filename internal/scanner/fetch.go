package scanner

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/projectdiscovery/rawhttp"
)

const maxDrainBytes = 1 << 20

// HTTPFetcher is a net/http based Fetcher that never follows redirects.
// Requests go straight to the transport so a Location header that is not a
// valid URL still reaches the caller verbatim.
type HTTPFetcher struct {
	transport *http.Transport
	timeout   time.Duration
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		DisableKeepAlives:     true,
		ResponseHeaderTimeout: timeout,
	}
	return &HTTPFetcher{transport: transport, timeout: timeout}
}

// Fetch implements Fetcher. Already percent-encoded sequences in path are kept
// because net/url preserves a valid RawPath.
func (f *HTTPFetcher) Fetch(ctx context.Context, baseURL, path string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.transport.RoundTrip(req)
	if err != nil {
		if isMalformedResponse(err) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone()}, nil
}

// isMalformedResponse reports whether the peer answered with something that
// is not an HTTP response. net/http only exposes this as text.
func isMalformedResponse(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "malformed HTTP") || strings.Contains(msg, "malformed MIME header")
}

// RawFetcher sends the request-target byte for byte, which net/http cannot do
// for targets such as "*".
type RawFetcher struct {
	client *rawhttp.Client
}

// NewRawFetcher creates a raw fetcher with redirect following disabled
func NewRawFetcher(timeout time.Duration) *RawFetcher {
	opts := *rawhttp.DefaultOptions
	opts.Timeout = timeout
	opts.FollowRedirects = false
	opts.MaxRedirects = 0
	opts.AutomaticHostHeader = true
	opts.ForceReadAllBody = true
	return &RawFetcher{client: rawhttp.NewClient(&opts)}
}

type rawResult struct {
	resp *http.Response
	err  error
}

// Fetch implements Fetcher. rawhttp takes no context, so the call runs in its
// own goroutine and ctx only bounds how long we wait for it.
func (f *RawFetcher) Fetch(ctx context.Context, baseURL, path string) (*Response, error) {
	done := make(chan rawResult, 1)
	go func() {
		resp, err := f.client.DoRaw(http.MethodGet, baseURL, path, map[string][]string{}, nil)
		done <- rawResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.resp != nil && r.resp.Body != nil {
				r.resp.Body.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.resp.Body != nil {
			defer r.resp.Body.Close()
		}
		return &Response{Status: r.resp.StatusCode, Header: r.resp.Header.Clone()}, nil
	}
}
