package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(t *target, method, uri string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	t.ServeHTTP(rec, httptest.NewRequest(method, uri, nil))
	return rec
}

func TestRejectsAsteriskTarget(t *testing.T) {
	rec := serve(&target{port: 3000}, http.MethodGet, "*")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedirectKeepsEncoding(t *testing.T) {
	tests := []struct {
		name       string
		vulnerable bool
		uri        string
		want       string
	}{
		{"backslash", false, "/redirect/me/to-about/%5Cgoogle.com", "http://localhost:3000/%5Cgoogle.com/about"},
		{"percent", false, "/redirect/me/to-about/%25google.com", "http://localhost:3000/%25google.com/about"},
		{"percent decoded", true, "/redirect/me/to-about/%25google.com", "http://localhost:3000/%google.com/about"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&target{port: 3000, vulnerable: tt.vulnerable}, http.MethodGet, tt.uri)
			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestImageEmbedsGuardOrigin(t *testing.T) {
	uri := "/_next/image?url=%2Fiframe.svg&w=256&q=75"

	rec := serve(&target{guardOrigin: "http://127.0.0.1:5243"}, http.MethodGet, uri)
	assert.Equal(t, imageCSP, rec.Header().Get("Content-Security-Policy"))
	assert.Contains(t, rec.Body.String(), `id="iframe" src="http://127.0.0.1:5243/embed"`)

	rec = serve(&target{guardOrigin: "http://127.0.0.1:5243", vulnerable: true}, http.MethodGet, uri)
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestPageReflection(t *testing.T) {
	path := `/'-(document.body.innerHTML='INJECTED')-'`

	rec := serve(&target{}, http.MethodGet, path)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	literal, _ := json.Marshal(path)
	assert.Contains(t, rec.Body.String(), "window.__PAGE__ = "+string(literal)+";")

	rec = serve(&target{vulnerable: true}, http.MethodGet, path)
	assert.Contains(t, rec.Body.String(), `window.__PAGE__ = '`+path+`';`)
}
