package features

import "strings"

// Parts is a lenient split of a URL string. Malformed input never fails;
// missing components are empty.
type Parts struct {
	Scheme string
	// Host is the lowercased hostname without userinfo or port.
	Host  string
	Path  string
	Query string
}

// Split breaks raw into scheme, host, path, and query. Unlike net/url it
// accepts anything a browser might be handed, so heuristics and features
// see the same host for odd inputs like "http://a b.com/%zz".
func Split(raw string) Parts {
	var p Parts
	rest := raw

	if i := strings.IndexByte(rest, ':'); i > 0 && validScheme(rest[:i]) {
		p.Scheme = strings.ToLower(rest[:i])
		rest = rest[i+1:]
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		p.Query = rest[i+1:]
		rest = rest[:i]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		netloc := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			netloc = rest[:i]
			rest = rest[i:]
		} else {
			rest = ""
		}
		p.Host = hostname(netloc)
	}
	p.Path = rest
	return p
}

func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func hostname(netloc string) string {
	if i := strings.LastIndexByte(netloc, '@'); i >= 0 {
		netloc = netloc[i+1:]
	}
	if strings.HasPrefix(netloc, "[") {
		if i := strings.IndexByte(netloc, ']'); i > 0 {
			return strings.ToLower(netloc[1:i])
		}
		return ""
	}
	if i := strings.IndexByte(netloc, ':'); i >= 0 {
		netloc = netloc[:i]
	}
	return strings.ToLower(netloc)
}
