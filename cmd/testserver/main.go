package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const redirectPrefix = "/redirect/me/to-about/"

// imageCSP keeps an SVG served as a document from loading frames or scripts
const imageCSP = "script-src 'none'; frame-src 'none'; sandbox;"

const iframeSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="256" height="256">
  <foreignObject width="256" height="256">
    <iframe xmlns="http://www.w3.org/1999/xhtml" id="iframe" src="%s/embed" width="256" height="256"></iframe>
  </foreignObject>
</svg>
`

type target struct {
	port        int
	guardOrigin string
	vulnerable  bool
}

func (t *target) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("method", r.Method).Str("uri", r.RequestURI).Msg("Request")

	switch {
	case r.RequestURI == "*":
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case strings.HasPrefix(r.RequestURI, redirectPrefix):
		t.redirect(w, r)
	case r.URL.Path == "/_next/image":
		t.image(w, r)
	default:
		t.page(w, r)
	}
}

// redirect answers with a 307 to /<rest>/about, keeping the request's encoding
func (t *target) redirect(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.RequestURI, redirectPrefix)
	if t.vulnerable {
		rest = strings.TrimPrefix(r.URL.Path, redirectPrefix)
	}
	w.Header().Set("Location", "http://localhost:"+strconv.Itoa(t.port)+"/"+rest+"/about")
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func (t *target) image(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if !t.vulnerable {
		w.Header().Set("Content-Security-Policy", imageCSP)
	}
	fmt.Fprintf(w, iframeSVG, t.guardOrigin)
}

// page renders a not-found page that hands the requested path to an inline
// script. The path is never shown as text.
func (t *target) page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
	}

	uri := r.URL.Path
	if r.URL.RawQuery != "" {
		if q, err := url.QueryUnescape(r.URL.RawQuery); err == nil {
			uri += "?" + q
		}
	}

	if t.vulnerable {
		// Vulnerable reflection
		fmt.Fprintf(w, `<html><body><h1>Not Found</h1><script>window.__PAGE__ = '%s'; window.__ALT__ = "%s";</script></body></html>`, uri, uri)
		return
	}

	literal, _ := json.Marshal(uri)
	fmt.Fprintf(w, `<html><body><h1>Not Found</h1><script>window.__PAGE__ = %s;</script></body></html>`, literal)
}

func main() {
	port := pflag.IntP("port", "p", 3000, "Port to listen on")
	guard := pflag.String("guard", "http://127.0.0.1:5243", "Untrusted origin embedded by /_next/image")
	vulnerable := pflag.Bool("vulnerable", false, "Reflect paths unescaped and load the embedded origin")
	pflag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	t := &target{port: *port, guardOrigin: strings.TrimSuffix(*guard, "/"), vulnerable: *vulnerable}
	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(*port)),
		Handler:           t,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mode := "sanitizing"
	if *vulnerable {
		mode = "vulnerable"
	}
	log.Info().Str("mode", mode).Msgf("Test server running on http://localhost:%d", *port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Test server stopped")
	}
}
