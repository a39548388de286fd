// Package features turns a URL into the fixed numeric vector consumed by
// the URL classifier.
package features

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Names is the ordered feature contract. A trained model receives exactly
// these features in exactly this order.
var Names = [Count]string{
	"url_length",
	"hostname_length",
	"path_length",
	"digit_count",
	"letter_count",
	"special_count",
	"dot_count",
	"hyphen_count",
	"underscore_count",
	"slash_count",
	"at_count",
	"question_count",
	"ampersand_count",
	"equals_count",
	"subdomain_count",
	"path_depth",
	"query_param_count",
	"has_https",
	"has_ip",
	"domain_entropy",
	"digit_ratio",
	"special_ratio",
}

// Count is the number of features in a Vector.
const Count = 22

// Vector is one URL's feature values, indexed like Names.
type Vector [Count]float64

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Count)
	for i, name := range Names {
		m[name] = v[i]
	}
	return m
}

// Slice returns the vector as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v[:])
	return out
}

var dottedQuad = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// IsIPv4Literal reports whether host is a dotted-quad address.
func IsIPv4Literal(host string) bool {
	return dottedQuad.MatchString(host)
}

// SubdomainCount is the number of dots in host minus one, floored at zero.
func SubdomainCount(host string) int {
	n := strings.Count(host, ".") - 1
	if n < 0 {
		return 0
	}
	return n
}

// Extract computes the feature vector for raw. It performs no I/O.
func Extract(raw string) Vector {
	p := Split(raw)
	host := p.Host

	urlLen := utf8.RuneCountInString(raw)

	var digits, letters, special int
	for _, c := range raw {
		switch {
		case unicode.IsDigit(c):
			digits++
		case unicode.IsLetter(c):
			letters++
		case c == ':' || c == '/' || c == '.':
		case unicode.IsNumber(c):
			// Other numerics count as alphanumeric but not as digits.
		default:
			special++
		}
	}

	slashes := strings.Count(raw, "/") - 2
	if slashes < 0 {
		slashes = 0
	}

	pathDepth := 0
	for _, seg := range strings.Split(p.Path, "/") {
		if seg != "" {
			pathDepth++
		}
	}

	queryParams := 0
	if p.Query != "" {
		for _, q := range strings.Split(p.Query, "&") {
			if q != "" {
				queryParams++
			}
		}
	}

	var v Vector
	v[0] = float64(urlLen)
	v[1] = float64(utf8.RuneCountInString(host))
	v[2] = float64(utf8.RuneCountInString(p.Path))
	v[3] = float64(digits)
	v[4] = float64(letters)
	v[5] = float64(special)
	v[6] = float64(strings.Count(raw, "."))
	v[7] = float64(strings.Count(raw, "-"))
	v[8] = float64(strings.Count(raw, "_"))
	v[9] = float64(slashes)
	v[10] = float64(strings.Count(raw, "@"))
	v[11] = float64(strings.Count(raw, "?"))
	v[12] = float64(strings.Count(raw, "&"))
	v[13] = float64(strings.Count(raw, "="))
	v[14] = float64(SubdomainCount(host))
	v[15] = float64(pathDepth)
	v[16] = float64(queryParams)
	v[17] = boolFloat(p.Scheme == "https")
	v[18] = boolFloat(IsIPv4Literal(host))
	v[19] = Entropy(host)
	if urlLen > 0 {
		v[20] = Round4(float64(digits) / float64(urlLen))
		v[21] = Round4(float64(special) / float64(urlLen))
	}
	return v
}

// Entropy is the Shannon entropy of s in bits per character, rounded to 4
// decimals. The empty string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, c := range s {
		freq[c]++
		n++
	}
	var h float64
	for _, count := range freq {
		p := float64(count) / float64(n)
		h -= p * math.Log2(p)
	}
	return Round4(h)
}

// Round4 rounds x to 4 decimal places, half away from zero.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
