package payloads

import "strings"

const upperhex = "0123456789ABCDEF"

// uriReserved holds the bytes EncodeURI leaves untouched besides alphanumerics.
const uriReserved = "-_.!~*'();/?:@&=+$,#"

// EncodeURI percent-encodes s the way ECMAScript encodeURI does: reserved
// characters and "#" survive, everything else becomes %XX of its UTF-8 bytes.
// A backslash becomes %5C; an existing "%" becomes %25.
func EncodeURI(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(uriReserved, c) >= 0
}
