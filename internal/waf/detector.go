// Package waf fingerprints web application firewalls and CDNs in front of a target.
package waf

import (
	"net/http"
	"strings"
)

type signature struct {
	name    string
	needles []string // lowercase, matched against "name: value" header lines
}

// Header signatures, checked in order
var signatures = []signature{
	{name: "cloudflare", needles: []string{"cloudflare", "cf-ray"}},
	{name: "akamai", needles: []string{"akamai", "akamaighost"}},
	{name: "cloudfront", needles: []string{"cloudfront", "x-amz-cf"}},
	{name: "imperva", needles: []string{"incapsula", "imperva", "x-iinfo"}},
	{name: "sucuri", needles: []string{"sucuri", "x-sucuri"}},
	{name: "f5", needles: []string{"bigip", "x-wa-info"}},
	{name: "barracuda", needles: []string{"barracuda"}},
	{name: "modsecurity", needles: []string{"mod_security", "modsecurity"}},
}

// Fingerprint identifies the WAF protecting the target from response headers.
// A WAF can answer probes on the target's behalf, so results behind one say
// more about the WAF than about the target. Returns "" when nothing matched.
func Fingerprint(status int, header http.Header) string {
	for _, sig := range signatures {
		for name, values := range header {
			line := strings.ToLower(name + ": " + strings.Join(values, ", "))
			for _, needle := range sig.needles {
				if strings.Contains(line, needle) {
					return sig.name
				}
			}
		}
	}

	// Check for blocked status codes
	if status == http.StatusForbidden || status == http.StatusNotAcceptable || status == http.StatusTooManyRequests {
		return "unknown"
	}
	return ""
}
