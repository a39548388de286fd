package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Parts
	}{
		{"full", "https://User@WWW.Example.com:8443/a/b?x=1&y=2#frag", Parts{Scheme: "https", Host: "www.example.com", Path: "/a/b", Query: "x=1&y=2"}},
		{"no path", "http://example.com", Parts{Scheme: "http", Host: "example.com"}},
		{"query without path", "http://a.com?x=1", Parts{Scheme: "http", Host: "a.com", Query: "x=1"}},
		{"no scheme", "example.com/login", Parts{Path: "example.com/login"}},
		{"userinfo trick", "http://paypal.com@evil.tk/login", Parts{Scheme: "http", Host: "evil.tk", Path: "/login"}},
		{"ipv6", "http://[::1]:80/x", Parts{Scheme: "http", Host: "::1", Path: "/x"}},
		{"bad escape", "http://example.com/%zz", Parts{Scheme: "http", Host: "example.com", Path: "/%zz"}},
		{"empty", "", Parts{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Split(tt.raw))
		})
	}
}

func TestExtract_KnownURL(t *testing.T) {
	t.Parallel()

	v := Extract("https://login.secure.example.com/account/verify?id=42&x=1").Map()

	assert.Equal(t, 57.0, v["url_length"])
	assert.Equal(t, 24.0, v["hostname_length"])
	assert.Equal(t, 15.0, v["path_length"])
	assert.Equal(t, 3.0, v["digit_count"])
	assert.Equal(t, 3.0, v["dot_count"])
	assert.Equal(t, 2.0, v["slash_count"])
	assert.Equal(t, 1.0, v["question_count"])
	assert.Equal(t, 1.0, v["ampersand_count"])
	assert.Equal(t, 2.0, v["equals_count"])
	assert.Equal(t, 2.0, v["subdomain_count"])
	assert.Equal(t, 2.0, v["path_depth"])
	assert.Equal(t, 2.0, v["query_param_count"])
	assert.Equal(t, 1.0, v["has_https"])
	assert.Equal(t, 0.0, v["has_ip"])
	// ?, &, = and = are the only specials
	assert.Equal(t, 4.0, v["special_count"])
	assert.Equal(t, Round4(3.0/57.0), v["digit_ratio"])
	assert.Equal(t, Round4(4.0/57.0), v["special_ratio"])
}

func TestExtract_IPHost(t *testing.T) {
	t.Parallel()

	v := Extract("http://192.168.1.1/banking/login")
	assert.Equal(t, 1.0, v[18])
	assert.Equal(t, 0.0, v[17])
	assert.Equal(t, 2.0, v[14])
}

func TestExtract_NoHostname(t *testing.T) {
	t.Parallel()

	v := Extract("not a url").Map()
	assert.Equal(t, 0.0, v["hostname_length"])
	assert.Equal(t, 0.0, v["has_ip"])
	assert.Equal(t, 0.0, v["domain_entropy"])
	assert.Equal(t, 0.0, v["subdomain_count"])
	assert.Equal(t, 0.0, v["slash_count"])
	assert.Equal(t, 9.0, v["url_length"])
}

func TestExtract_Empty(t *testing.T) {
	t.Parallel()

	v := Extract("")
	assert.Equal(t, Vector{}, v)
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	u := "http://paypa1-secure.xyz/login/verify"
	assert.Equal(t, Extract(u), Extract(u))
}

func TestNamesOrder(t *testing.T) {
	t.Parallel()

	assert.Len(t, Names, 22)
	assert.Equal(t, "url_length", Names[0])
	assert.Equal(t, "has_https", Names[17])
	assert.Equal(t, "domain_entropy", Names[19])
	assert.Equal(t, "special_ratio", Names[21])
}

func TestEntropy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Entropy(""))
	assert.Equal(t, 0.0, Entropy("aaaa"))
	assert.Equal(t, 1.0, Entropy("abab"))
	assert.Equal(t, 2.0, Entropy("abcd"))
	assert.Equal(t, 1.5, Entropy("aabc"))
}

func TestSubdomainCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, SubdomainCount(""))
	assert.Equal(t, 0, SubdomainCount("localhost"))
	assert.Equal(t, 0, SubdomainCount("example.com"))
	assert.Equal(t, 1, SubdomainCount("www.example.com"))
	assert.Equal(t, 3, SubdomainCount("a.b.c.example.com"))
}

func TestIsIPv4Literal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsIPv4Literal("10.0.0.1"))
	assert.True(t, IsIPv4Literal("999.999.999.999"))
	assert.False(t, IsIPv4Literal("10.0.0"))
	assert.False(t, IsIPv4Literal("10.0.0.1.example.com"))
	assert.False(t, IsIPv4Literal(""))
}
