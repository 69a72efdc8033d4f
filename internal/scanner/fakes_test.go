package scanner

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/Serdar715/pathguard/internal/browser"
	"github.com/Serdar715/pathguard/internal/config"
)

type fakeSession struct {
	mu      sync.Mutex
	texts   []string // successive BodyText results, the last one repeats
	textErr error
	reads   int
	attr    string
	attrOK  bool
	attrErr error
	dialogs []string
	closed  int
}

func (s *fakeSession) BodyText(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.textErr != nil {
		return "", s.textErr
	}
	if len(s.texts) == 0 {
		return "", nil
	}
	return s.texts[min(s.reads, len(s.texts))-1], nil
}

func (s *fakeSession) Attribute(ctx context.Context, elementID, name string) (string, bool, error) {
	return s.attr, s.attrOK, s.attrErr
}

func (s *fakeSession) Dialogs() []string {
	return s.dialogs
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeDriver struct {
	mu      sync.Mutex
	session *fakeSession
	openErr error
	onOpen  func(url string)
	opened  []string
}

func (d *fakeDriver) Open(ctx context.Context, url string) (browser.Session, error) {
	d.mu.Lock()
	d.opened = append(d.opened, url)
	d.mu.Unlock()
	if d.onOpen != nil {
		d.onOpen(url)
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.session, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakeFetcher struct {
	responses []*Response
	errs      []error
	calls     int
	paths     []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, baseURL, path string) (*Response, error) {
	i := f.calls
	f.calls++
	f.paths = append(f.paths, path)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[min(i, len(f.responses)-1)], nil
}

func targetFor(t *testing.T, srv *httptest.Server) config.TargetConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return config.TargetConfig{Host: u.Hostname(), Port: port}
}
