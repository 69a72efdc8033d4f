package payloads

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeURI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "backslash", input: `\google.com`, want: "%5Cgoogle.com"},
		{name: "path with backslash", input: `/\google.com/about`, want: "/%5Cgoogle.com/about"},
		{name: "percent", input: "%25", want: "%2525"},
		{name: "reserved kept", input: "/a?b=c&d#e;f:g@h+$,", want: "/a?b=c&d#e;f:g@h+$,"},
		{name: "marks kept", input: "-_.!~*'()", want: "-_.!~*'()"},
		{name: "quotes and space", input: `" <>`, want: "%22%20%3C%3E"},
		{name: "utf8", input: "é", want: "%C3%A9"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeURI(tt.input))
		})
	}
}

func TestProbeCasesCoverVectorClasses(t *testing.T) {
	cases := ProbeCases()
	require.NotEmpty(t, cases)

	prefixes := []string{`/'-(`, `/"-(`, `/;'-(`, `/;"-(`, "/javascript:", "/?javascript=(", `/?javascript="`}
	for _, prefix := range prefixes {
		found := false
		for _, c := range cases {
			if strings.HasPrefix(c.Path, prefix) {
				found = true
				break
			}
		}
		assert.Truef(t, found, "no probe case starts with %q", prefix)
	}

	paths := make([]string, 0, len(cases))
	for _, c := range cases {
		paths = append(paths, c.Path)
	}
	assert.Contains(t, paths, `/'-(document.body.innerHTML="INJECTED",'`)
	assert.Contains(t, paths, `/',document.body.innerHTML="INJECTED",'`)

	names := make(map[string]bool)
	for _, c := range cases {
		assert.Contains(t, c.Path, DefaultMarker)
		assert.Falsef(t, names[c.Name], "duplicate case name %q", c.Name)
		names[c.Name] = true
	}
}

func TestProbeCasesStableAndCopied(t *testing.T) {
	first := ProbeCases()
	first[0].Path = "/mutated"

	second := ProbeCases()
	assert.NotEqual(t, "/mutated", second[0].Path)
	assert.Equal(t, ProbeCases(), second)
}

func TestRedirectExpectations(t *testing.T) {
	exp := RedirectExpectations()
	require.Len(t, exp, 2)

	assert.Equal(t, "/redirect/me/to-about/%5Cgoogle.com", exp[0].RequestPath)
	assert.Equal(t, "/%5Cgoogle.com/about", exp[0].ExpectedPathname)
	assert.Equal(t, "/redirect/me/to-about/%25google.com", exp[1].RequestPath)
	assert.Equal(t, "/%25google.com/about", exp[1].ExpectedPathname)

	for _, e := range exp {
		assert.Equal(t, http.StatusTemporaryRedirect, e.ExpectedStatus)
		assert.Equal(t, "localhost", e.ExpectedHostname)
	}
}

func TestOriginFixture(t *testing.T) {
	o := Origin()
	assert.Equal(t, "/_next/image?url=%2Fiframe.svg&w=256&q=75", o.NavigationPath)
	assert.Equal(t, "iframe", o.ElementID)
	assert.Equal(t, "src", o.Attribute)
	assert.Equal(t, "/embed", o.EmbedPath)
}
