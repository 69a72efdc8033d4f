package payloads

import "net/http"

// DefaultMarker is the token every vector tries to write into the page body.
const DefaultMarker = "INJECTED"

// MalformedPath is the request-target sent by the malformed request probe.
const MalformedPath = "*"

// ProbeCase is a single attack vector. Path is sent as-is, never re-encoded.
type ProbeCase struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// RedirectExpectation describes one redirect that must keep its encoding.
type RedirectExpectation struct {
	Name             string `json:"name" yaml:"name"`
	RequestPath      string `json:"request_path" yaml:"request_path"`
	ExpectedStatus   int    `json:"expected_status" yaml:"expected_status"`
	ExpectedPathname string `json:"expected_pathname" yaml:"expected_pathname"`
	ExpectedHostname string `json:"expected_hostname" yaml:"expected_hostname"`
}

// OriginFixture describes the page that embeds the untrusted origin.
type OriginFixture struct {
	Name           string `json:"name" yaml:"name"`
	NavigationPath string `json:"navigation_path" yaml:"navigation_path"`
	ElementID      string `json:"element_id" yaml:"element_id"`
	Attribute      string `json:"attribute" yaml:"attribute"`
	// EmbedPath is appended to the guard origin to build the expected attribute value.
	EmbedPath string `json:"embed_path" yaml:"embed_path"`
}

var probeCases = []ProbeCase{
	{Name: "comma breakout", Path: `/',document.body.innerHTML="INJECTED",'`},
	{Name: "single quotes", Path: `/'-(document.body.innerHTML='INJECTED')-'`},
	{Name: "double quotes", Path: `/"-(document.body.innerHTML='INJECTED')-"`},
	{Name: "semicolons and double quotes", Path: `/;"-(document.body.innerHTML='INJECTED')-"`},
	{Name: "semicolons and single quotes", Path: `/;'-(document.body.innerHTML='INJECTED')-'`},
	{Name: "javascript scheme in path", Path: `/javascript:(document.body.innerHTML='INJECTED')`},
	{Name: "javascript querystring", Path: `/?javascript=(document.body.innerHTML='INJECTED')`},
	{Name: "javascript querystring and quotes", Path: `/?javascript="(document.body.innerHTML='INJECTED')"`},
	{Name: "single quote minus breakout", Path: `/'-(document.body.innerHTML="INJECTED",'`},
}

var redirectExpectations = []RedirectExpectation{
	{
		Name:             `encoded backslash \`,
		RequestPath:      "/redirect/me/to-about/" + EncodeURI(`\google.com`),
		ExpectedStatus:   http.StatusTemporaryRedirect,
		ExpectedPathname: EncodeURI(`/\google.com/about`),
		ExpectedHostname: "localhost",
	},
	{
		Name:             "encoded percent %",
		RequestPath:      "/redirect/me/to-about/%25google.com",
		ExpectedStatus:   http.StatusTemporaryRedirect,
		ExpectedPathname: "/%25google.com/about",
		ExpectedHostname: "localhost",
	},
}

var originFixture = OriginFixture{
	Name:           "iframe embedded inside svg image",
	NavigationPath: "/_next/image?url=%2Fiframe.svg&w=256&q=75",
	ElementID:      "iframe",
	Attribute:      "src",
	EmbedPath:      "/embed",
}

// ProbeCases returns the browser attack vectors in a stable order.
func ProbeCases() []ProbeCase {
	out := make([]ProbeCase, len(probeCases))
	copy(out, probeCases)
	return out
}

// RedirectExpectations returns the redirect encoding fixtures in a stable order.
func RedirectExpectations() []RedirectExpectation {
	out := make([]RedirectExpectation, len(redirectExpectations))
	copy(out, redirectExpectations)
	return out
}

// Origin returns the cross-origin embed fixture.
func Origin() OriginFixture {
	return originFixture
}
