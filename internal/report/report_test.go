package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Serdar715/pathguard/internal/config"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *config.RunResult {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &config.RunResult{RunID: "abc", Target: "http://localhost:3000", StartTime: start}
	r.Add(config.CaseResult{Name: "malformed request-target", Kind: config.KindMalformed, Path: "*",
		Status: config.StatusPass, Observed: "statuses=[400 400]"})
	r.Add(config.CaseResult{Name: "single quotes", Kind: config.KindBrowser, Path: "/'-x-'",
		Status: config.StatusFail, Failure: "injection_detected", Evidence: "INJECTED"})
	r.Add(config.CaseResult{Name: "encoded percent %", Kind: config.KindRedirect, Path: "/redirect/me/to-about/%25google.com",
		Status: config.StatusError, Detail: "connection reset"})
	r.Errors = []string{"connection reset"}
	r.Finish(start.Add(1500 * time.Millisecond))
	return r
}

func TestRenderJSON(t *testing.T) {
	data, err := New("JSON").Render(sampleResult())
	require.NoError(t, err)

	var decoded config.RunResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded.RunID)
	assert.Len(t, decoded.Cases, 3)
	assert.Equal(t, 1, decoded.Failed)
	assert.Equal(t, "1.5s", decoded.Duration)
}

func TestRenderYAML(t *testing.T) {
	data, err := New("yaml").Render(sampleResult())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["run_id"])
	assert.Equal(t, 1, decoded["passed"])
}

func TestRenderMarkdown(t *testing.T) {
	data, err := New("md").Render(sampleResult())
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# PathGuard Run Report")
	assert.Contains(t, md, "**Result:** 1 passed, 1 failed, 1 errors, 0 skipped")
	assert.Contains(t, md, "### 2. single quotes (FAIL)")
	assert.Contains(t, md, "- **Failure:** injection_detected")
	assert.Contains(t, md, "## Infrastructure Errors")
	assert.NotContains(t, md, "Run aborted")
}

func TestGenerateWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, New("json").Generate(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestPrintCasesAndSummary(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	PrintCases(&buf, sampleResult())
	out := buf.String()
	assert.Contains(t, out, "single quotes")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "injection_detected")

	buf.Reset()
	PrintSummary(&buf, sampleResult())
	assert.Contains(t, buf.String(), "RUN SUMMARY")
	assert.Contains(t, buf.String(), "Failed:      1")
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	PrintCatalog(&buf, "http://127.0.0.1:5243")
	out := buf.String()
	assert.Contains(t, out, "GET *")
	assert.Contains(t, out, "http://127.0.0.1:5243/embed")
	assert.Contains(t, out, "/redirect/me/to-about/%25google.com")
}

func TestSendWebhook(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, SendWebhook(context.Background(), sampleResult(), srv.URL))
	assert.Contains(t, body, "injection_detected")
	assert.True(t, strings.Contains(body, "single quotes"))
}

func TestSendWebhookSkipsCleanRun(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	clean := &config.RunResult{RunID: "ok"}
	clean.Add(config.CaseResult{Name: "a", Status: config.StatusPass})
	require.NoError(t, SendWebhook(context.Background(), clean, srv.URL))
	assert.False(t, called)
}

func TestSendWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := SendWebhook(context.Background(), sampleResult(), srv.URL)
	assert.ErrorContains(t, err, "502")
}
