// Package heuristics evaluates the fixed catalogue of phishing indicator
// rules over URLs and email text.
package heuristics

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/risk-analyzer/internal/features"
	"github.com/sells-group/risk-analyzer/internal/model"
)

const maxURLLength = 75

// urlView is the parsed form every URL rule reads.
type urlView struct {
	raw    string
	length int
	parts  features.Parts
}

// fired is the read-only set of rule names that already fired earlier in
// the same pass.
type fired map[string]bool

func (f fired) any(names ...string) bool {
	for _, n := range names {
		if f[n] {
			return true
		}
	}
	return false
}

// urlRule evaluates one indicator. It returns ok=false when the rule does
// not fire.
type urlRule struct {
	name  string
	check func(u urlView, prior fired) (severity float64, explanation string, ok bool)
}

// urlRules run in this order. Suspicious Path Keywords depends on the
// outcome of the TLD, brand and HTTPS rules, so it must follow them.
var urlRules = []urlRule{
	{ExcessiveLength, func(u urlView, _ fired) (float64, string, bool) {
		if u.length <= maxURLLength {
			return 0, "", false
		}
		return math.Min(1, float64(u.length-maxURLLength)/100),
			fmt.Sprintf("This URL is %d characters long. Legitimate URLs are typically shorter. Long URLs can hide malicious paths.", u.length),
			true
	}},
	{IPAddress, func(u urlView, _ fired) (float64, string, bool) {
		if !features.IsIPv4Literal(u.parts.Host) {
			return 0, "", false
		}
		return 0.85, "This URL uses an IP address instead of a domain name. Legitimate websites almost always use domain names.", true
	}},
	{MissingHTTPS, func(u urlView, _ fired) (float64, string, bool) {
		if u.parts.Scheme == "https" {
			return 0, "", false
		}
		return 0.6, "This URL does not use HTTPS encryption. Most legitimate sites use HTTPS to protect your data.", true
	}},
	{SuspiciousTLD, func(u urlView, _ fired) (float64, string, bool) {
		tld := topLevelDomain(u.parts.Host)
		if !suspiciousTLDs[tld] {
			return 0, "", false
		}
		return 0.7, fmt.Sprintf("The domain uses '%s' which is commonly associated with phishing and spam websites.", tld), true
	}},
	{Shortener, func(u urlView, _ fired) (float64, string, bool) {
		if !ShortenerDomains[u.parts.Host] {
			return 0, "", false
		}
		return 0.5, "This URL uses a shortening service which hides the actual destination. The real URL could be malicious.", true
	}},
	{ExcessiveSubdomains, func(u urlView, _ fired) (float64, string, bool) {
		n := features.SubdomainCount(u.parts.Host)
		if n < 3 {
			return 0, "", false
		}
		return math.Min(1, float64(n)*0.2),
			fmt.Sprintf("This URL has %d subdomains. Phishing sites often use many subdomains to mimic legitimate domains.", n),
			true
	}},
	{AtSymbol, func(u urlView, _ fired) (float64, string, bool) {
		if !strings.Contains(u.raw, "@") {
			return 0, "", false
		}
		return 0.9, "The '@' symbol in a URL can redirect you to a different site than what's displayed. This is a common phishing technique.", true
	}},
	{BrandImpersonation, func(u urlView, _ fired) (float64, string, bool) {
		brand, variant, ok := matchBrand(u.parts.Host)
		if !ok {
			return 0, "", false
		}
		return 0.95,
			fmt.Sprintf("This domain appears to impersonate '%s' using a lookalike name '%s'. This is a common phishing technique.", brand, variant),
			true
	}},
	{SuspiciousPath, func(u urlView, prior fired) (float64, string, bool) {
		if !prior.any(SuspiciousTLD, BrandImpersonation, MissingHTTPS) {
			return 0, "", false
		}
		path := strings.ToLower(u.parts.Path)
		var found []string
		for _, kw := range pathKeywords {
			if strings.Contains(path, kw) {
				found = append(found, kw)
			}
		}
		if len(found) == 0 {
			return 0, "", false
		}
		return 0.6,
			fmt.Sprintf("The URL path contains sensitive keywords (%s) combined with other suspicious signals.", strings.Join(found, ", ")),
			true
	}},
	{Obfuscation, func(u urlView, _ fired) (float64, string, bool) {
		if !strings.Contains(u.raw, "%2") && !strings.Contains(u.raw, "%3") && !strings.Contains(u.parts.Path, "..") {
			return 0, "", false
		}
		return 0.7, "This URL contains encoded or obfuscated characters, which can hide the true destination.", true
	}},
}

// AnalyzeURL runs the URL rule catalogue over raw and returns the
// indicators that fired, in catalogue order.
func AnalyzeURL(raw string) []model.Indicator {
	u := urlView{
		raw:    raw,
		length: utf8.RuneCountInString(raw),
		parts:  features.Split(raw),
	}

	prior := make(fired, len(urlRules))
	var out []model.Indicator
	for _, r := range urlRules {
		severity, explanation, ok := r.check(u, prior)
		if !ok {
			continue
		}
		prior[r.name] = true
		out = append(out, model.Indicator{
			Name:        r.name,
			Detected:    true,
			Severity:    severity,
			Explanation: explanation,
		})
	}
	return out
}

// topLevelDomain returns the host's final label with a leading dot, or ""
// for hosts without a dot.
func topLevelDomain(host string) string {
	i := strings.LastIndexByte(host, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(host[i:])
}

func matchBrand(host string) (brand, variant string, ok bool) {
	host = strings.ToLower(host)
	for _, t := range brandTargets {
		if strings.Contains(host, t.brand) {
			continue
		}
		for _, v := range t.variants {
			if strings.Contains(host, strings.ToLower(v)) {
				return t.brand, v, true
			}
		}
	}
	return "", "", false
}

// IsShortener reports whether host belongs to a known shortening service.
func IsShortener(host string) bool {
	return ShortenerDomains[strings.ToLower(host)]
}
