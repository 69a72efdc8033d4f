package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Serdar715/pathguard/internal/browser"
	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func testGuardConfig(t *testing.T) config.GuardConfig {
	return config.GuardConfig{Host: "127.0.0.1", Port: freePort(t), Settle: 10 * time.Millisecond}
}

// assertPortReleased fails if the guard port is still bound
func assertPortReleased(t *testing.T, g config.GuardConfig) {
	t.Helper()
	ln, err := net.Listen("tcp", strings.TrimPrefix(g.Origin(), "http://"))
	require.NoError(t, err, "guard port still bound")
	_ = ln.Close()
}

func TestGuardHandlerPreflight(t *testing.T) {
	state := &OriginGuardState{}
	rec := httptest.NewRecorder()
	NewGuardHandler(state).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/embed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.False(t, state.Invoked())
}

func TestGuardHandlerRecordsAndEchoes(t *testing.T) {
	state := &OriginGuardState{}
	rec := httptest.NewRecorder()
	NewGuardHandler(state).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed?x=1", nil))

	assert.True(t, state.Invoked())
	assert.Equal(t, []GuardRequest{{Method: "GET", Pathname: "/embed"}}, state.Requests())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var echoed GuardRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &echoed))
	assert.Equal(t, GuardRequest{Method: "GET", Pathname: "/embed"}, echoed)
}

func TestGuardListenerCloseIsIdempotent(t *testing.T) {
	g := testGuardConfig(t)
	l, err := StartGuardListener(g.Host, g.Port, NewGuardHandler(&OriginGuardState{}))
	require.NoError(t, err)

	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
	assertPortReleased(t, g)
}

func TestGuardListenerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	_, err = StartGuardListener("127.0.0.1", port, http.NotFoundHandler())
	assert.ErrorIs(t, err, ErrListenerBind)
}

func TestCrossOriginGuardPasses(t *testing.T) {
	g := testGuardConfig(t)
	session := &fakeSession{attr: g.Origin() + "/embed", attrOK: true}
	driver := &fakeDriver{session: session}
	guard := NewCrossOriginGuard(driver, localTarget, g)

	out, err := guard.Check(context.Background(), payloads.Origin())
	require.NoError(t, err)
	assert.False(t, out.Invoked)
	assert.Equal(t, g.Origin()+"/embed", out.Attribute)
	assert.Equal(t, []string{"http://127.0.0.1:3000" + payloads.Origin().NavigationPath}, driver.opened)
	assert.Equal(t, 1, session.closed)
	assertPortReleased(t, g)
}

func TestCrossOriginGuardDetectsInvocation(t *testing.T) {
	g := testGuardConfig(t)
	session := &fakeSession{attr: g.Origin() + "/embed", attrOK: true}
	driver := &fakeDriver{session: session, onOpen: func(string) {
		// a vulnerable page preflights and then fetches the embed
		req, _ := http.NewRequest(http.MethodOptions, g.Origin()+"/embed", nil)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
		}
		if resp, err := http.Get(g.Origin() + "/embed"); err == nil {
			resp.Body.Close()
		}
	}}
	guard := NewCrossOriginGuard(driver, localTarget, g)

	out, err := guard.Check(context.Background(), payloads.Origin())
	ae, ok := AsAssertion(err)
	require.True(t, ok, "expected assertion error, got %v", err)
	assert.Equal(t, FailureUnexpectedOriginInvocation, ae.Kind)
	assert.True(t, out.Invoked)
	assert.Equal(t, []GuardRequest{{Method: "GET", Pathname: "/embed"}}, out.Requests)
	assertPortReleased(t, g)
}

func TestCrossOriginGuardAttributeMismatch(t *testing.T) {
	g := testGuardConfig(t)
	tests := []struct {
		name    string
		session *fakeSession
	}{
		{"rewritten", &fakeSession{attr: "/_next/image?url=embed", attrOK: true}},
		{"missing", &fakeSession{}},
		{"element removed", &fakeSession{attrErr: fmt.Errorf("%w: #iframe", browser.ErrElementNotFound)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewCrossOriginGuard(&fakeDriver{session: tt.session}, localTarget, g)
			_, err := guard.Check(context.Background(), payloads.Origin())
			ae, ok := AsAssertion(err)
			require.True(t, ok)
			assert.Equal(t, FailureEmbedSourceMismatch, ae.Kind)
			assert.Equal(t, 1, tt.session.closed)
			assertPortReleased(t, g)
		})
	}
}

func TestCrossOriginGuardNavigationFailure(t *testing.T) {
	g := testGuardConfig(t)
	guard := NewCrossOriginGuard(&fakeDriver{openErr: errors.New("net::ERR_CONNECTION_REFUSED")}, localTarget, g)

	_, err := guard.Check(context.Background(), payloads.Origin())
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.ErrorIs(t, err, ErrNavigation)
	assertPortReleased(t, g)
}

func TestCrossOriginGuardAttributeReadFailure(t *testing.T) {
	g := testGuardConfig(t)
	session := &fakeSession{attrErr: errors.New("websocket: close 1006")}
	guard := NewCrossOriginGuard(&fakeDriver{session: session}, localTarget, g)

	_, err := guard.Check(context.Background(), payloads.Origin())
	assert.ErrorIs(t, err, ErrInfrastructure)
	_, ok := AsAssertion(err)
	assert.False(t, ok)
	assert.Equal(t, 1, session.closed)
}

func TestCrossOriginGuardPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	g := config.GuardConfig{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
	driver := &fakeDriver{session: &fakeSession{}}
	_, err = NewCrossOriginGuard(driver, localTarget, g).Check(context.Background(), payloads.Origin())

	assert.ErrorIs(t, err, ErrListenerBind)
	assert.Empty(t, driver.opened)
}
