package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Serdar715/pathguard/internal/browser"
	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/rs/zerolog/log"
)

// GuardRequest is one non-preflight request that reached the guard
type GuardRequest struct {
	Method   string `json:"method" yaml:"method"`
	Pathname string `json:"pathname" yaml:"pathname"`
}

// OriginGuardState is owned by one guard run. It is written by the listener's
// handler and must only be read after the listener is closed.
type OriginGuardState struct {
	mu       sync.Mutex
	invoked  bool
	requests []GuardRequest
}

func (s *OriginGuardState) record(r GuardRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoked = true
	s.requests = append(s.requests, r)
}

// Invoked reports whether any non-preflight request arrived
func (s *OriginGuardState) Invoked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoked
}

// Requests returns a copy of the recorded requests
func (s *OriginGuardState) Requests() []GuardRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GuardRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// NewGuardHandler answers CORS preflights permissively and records every
// other request in state, echoing it back as JSON.
func NewGuardHandler(state *OriginGuardState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		req := GuardRequest{Method: r.Method, Pathname: r.URL.Path}
		state.record(req)
		log.Warn().Str("method", req.Method).Str("pathname", req.Pathname).Msg("Guarded origin invoked")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(req)
	})
}

// GuardListener is a single-use HTTP server for the untrusted origin
type GuardListener struct {
	srv       *http.Server
	ln        net.Listener
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// StartGuardListener binds host:port and starts serving handler.
// A bind failure wraps ErrListenerBind.
func StartGuardListener(host string, port int, handler http.Handler) (*GuardListener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %w", ErrListenerBind, addr, err)
	}

	g := &GuardListener{
		srv:  &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		defer close(g.done)
		if err := g.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Guard listener stopped")
		}
	}()
	log.Debug().Str("addr", addr).Msg("Guard listener started")
	return g, nil
}

// Addr returns the bound address
func (g *GuardListener) Addr() string {
	return g.ln.Addr().String()
}

// Close shuts the server down and waits for the serve loop to exit.
// Only the first call does any work.
func (g *GuardListener) Close() error {
	g.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), GuardShutdownWindow)
		defer cancel()
		if err := g.srv.Shutdown(ctx); err != nil {
			g.closeErr = err
			_ = g.srv.Close()
		}
		<-g.done
	})
	return g.closeErr
}

// GuardOutcome is what one guard run observed
type GuardOutcome struct {
	Attribute        string         `json:"attribute" yaml:"attribute"`
	AttributePresent bool           `json:"attribute_present" yaml:"attribute_present"`
	Invoked          bool           `json:"invoked" yaml:"invoked"`
	Requests         []GuardRequest `json:"requests,omitempty" yaml:"requests,omitempty"`
}

// CrossOriginGuard drives the target to a page that references the untrusted
// origin and checks that the origin was never contacted.
type CrossOriginGuard struct {
	driver browser.Driver
	target config.TargetConfig
	guard  config.GuardConfig
}

// NewCrossOriginGuard creates a guard run configuration
func NewCrossOriginGuard(driver browser.Driver, target config.TargetConfig, guard config.GuardConfig) *CrossOriginGuard {
	return &CrossOriginGuard{driver: driver, target: target, guard: guard}
}

// ExpectedAttribute is the unexecuted embed reference the page must carry
func (g *CrossOriginGuard) ExpectedAttribute(fx payloads.OriginFixture) string {
	return g.guard.Origin() + fx.EmbedPath
}

// Check runs one guard pass. The listener is closed on every path before the
// invocation flag is read. An invocation takes precedence over every other
// result; after that come navigation errors, then the attribute comparison.
func (g *CrossOriginGuard) Check(ctx context.Context, fx payloads.OriginFixture) (GuardOutcome, error) {
	var out GuardOutcome
	state := &OriginGuardState{}

	listener, err := StartGuardListener(g.guard.Host, g.guard.Port, NewGuardHandler(state))
	if err != nil {
		e := NewInfraError("guard listen", g.guard.Origin(), err)
		e.Case = fx.Name
		return out, e
	}
	defer listener.Close()

	url := g.target.URL(fx.NavigationPath)
	attr, present, navErr := g.inspect(ctx, url, fx)
	if navErr == nil {
		navErr = g.settle(ctx)
	}

	if err := listener.Close(); err != nil {
		log.Warn().Err(err).Msg("Guard listener did not shut down cleanly")
	}
	out.Invoked = state.Invoked()
	out.Requests = state.Requests()
	out.Attribute = attr
	out.AttributePresent = present

	if out.Invoked {
		return out, NewAssertionError(FailureUnexpectedOriginInvocation, fx.Name,
			"%d request(s) reached %s, first %s %s",
			len(out.Requests), g.guard.Origin(), out.Requests[0].Method, out.Requests[0].Pathname)
	}
	if navErr != nil {
		e := NewInfraError("guard navigate", url, navErr)
		e.Case = fx.Name
		return out, e
	}

	want := g.ExpectedAttribute(fx)
	if !present || attr != want {
		return out, NewAssertionError(FailureEmbedSourceMismatch, fx.Name,
			"#%s[%s] = %q (present=%t), want %q", fx.ElementID, fx.Attribute, attr, present, want)
	}
	return out, nil
}

// inspect opens the fixture page and reads the embed attribute
func (g *CrossOriginGuard) inspect(ctx context.Context, url string, fx payloads.OriginFixture) (string, bool, error) {
	session, err := g.driver.Open(ctx, url)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close browser session")
		}
	}()

	attr, present, err := session.Attribute(ctx, fx.ElementID, fx.Attribute)
	if errors.Is(err, browser.ErrElementNotFound) {
		// a stripped embed is judged by the attribute comparison
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read #%s[%s]: %w", fx.ElementID, fx.Attribute, err)
	}
	return attr, present, nil
}

// settle gives late requests from the loaded page time to reach the listener
func (g *CrossOriginGuard) settle(ctx context.Context) error {
	if g.guard.Settle <= 0 {
		return nil
	}
	timer := time.NewTimer(g.guard.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
