package scanner

import "strings"

// LocationParts is the decomposition of a Location header value.
// Components are taken from the raw text: nothing is percent-decoded or
// re-encoded, and backslashes are left as they are.
type LocationParts struct {
	Scheme   string
	Hostname string // lowercased, without port or brackets
	Port     string
	Pathname string
	Search   string // includes the leading '?'
	Hash     string // includes the leading '#'
}

// SplitLocation decomposes a Location value. Relative references yield an
// empty Hostname. A value with an authority but no path gets Pathname "/".
func SplitLocation(raw string) LocationParts {
	var parts LocationParts
	s := strings.TrimSpace(raw)

	if i := strings.IndexByte(s, '#'); i >= 0 {
		parts.Hash = s[i:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		parts.Search = s[i:]
		s = s[:i]
	}

	if scheme, rest, ok := cutScheme(s); ok {
		parts.Scheme = strings.ToLower(scheme)
		s = rest
	}

	if authority, ok := strings.CutPrefix(s, "//"); ok {
		path := ""
		if i := strings.IndexByte(authority, '/'); i >= 0 {
			path = authority[i:]
			authority = authority[:i]
		}
		parts.Hostname, parts.Port = splitAuthority(authority)
		s = path
		if s == "" && parts.Hostname != "" {
			s = "/"
		}
	}

	parts.Pathname = s
	return parts
}

// cutScheme splits "scheme:rest" when s starts with a valid URI scheme
func cutScheme(s string) (scheme, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		case i > 0 && c == ':':
			return s[:i], s[i+1:], true
		default:
			return "", s, false
		}
	}
	return "", s, false
}

func splitAuthority(authority string) (host, port string) {
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}

	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return strings.ToLower(authority[1:]), ""
		}
		host = authority[1:end]
		if rest := authority[end+1:]; strings.HasPrefix(rest, ":") {
			port = rest[1:]
		}
		return strings.ToLower(host), port
	}

	host = authority
	if i := strings.LastIndexByte(authority, ':'); i >= 0 && isDigits(authority[i+1:]) {
		host, port = authority[:i], authority[i+1:]
	}
	return strings.ToLower(host), port
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
