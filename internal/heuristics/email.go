package heuristics

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sells-group/risk-analyzer/internal/model"
)

// space matches Unicode white space; RE2's \s is ASCII only.
const space = `\s\p{Z}\x{0b}\x{1c}-\x{1f}\x{85}`

var (
	urlPattern         = regexp.MustCompile(`https?://[^` + space + `<>"']+`)
	linkContextPattern = regexp.MustCompile(`(https?://[^` + space + `]+)[` + space + `]*(?:click here|verify|login|sign in)`)
)

// emailRule evaluates one indicator over the lowercased message text.
type emailRule struct {
	name  string
	check func(lower string, urls []string) (severity float64, explanation string, ok bool)
}

var emailRules = []emailRule{
	{UrgencyLanguage, func(lower string, _ []string) (float64, string, bool) {
		found := matchAll(lower, urgencyPhrases)
		if len(found) == 0 {
			return 0, "", false
		}
		return math.Min(1, float64(len(found))*0.15),
			fmt.Sprintf("This message uses pressure language: %s. Phishing emails create a false sense of urgency to trick you into acting quickly.", strings.Join(head(found, 5), ", ")),
			true
	}},
	{MultipleURLs, func(_ string, urls []string) (float64, string, bool) {
		if len(urls) <= 3 {
			return 0, "", false
		}
		return 0.4,
			fmt.Sprintf("This message contains %d URLs. Phishing emails often include multiple links to increase the chance of a click.", len(urls)),
			true
	}},
	{LinkContext, func(lower string, _ []string) (float64, string, bool) {
		if !linkContextPattern.MatchString(lower) {
			return 0, "", false
		}
		return 0.6, "A URL in this message is paired with action words like 'click here' or 'verify'. This pattern is common in phishing emails.", true
	}},
	{SensitiveRequest, func(lower string, _ []string) (float64, string, bool) {
		found := matchAll(lower, sensitivePhrases)
		if len(found) == 0 {
			return 0, "", false
		}
		return 0.85,
			fmt.Sprintf("This message mentions sensitive data: %s. Legitimate organizations rarely ask for this via email.", strings.Join(head(found, 3), ", ")),
			true
	}},
	{GenericGreeting, func(lower string, _ []string) (float64, string, bool) {
		if len(matchAll(lower, genericGreetings)) == 0 {
			return 0, "", false
		}
		return 0.35, "This message uses a generic greeting instead of your name. Legitimate companies usually address you personally.", true
	}},
	{ThreateningWords, func(lower string, _ []string) (float64, string, bool) {
		found := matchAll(lower, threatPhrases)
		if len(found) == 0 {
			return 0, "", false
		}
		return 0.7,
			fmt.Sprintf("This message contains threatening language: '%s'. Phishing emails often threaten consequences to pressure victims.", found[0]),
			true
	}},
}

// ExtractURLs returns every http(s) URL in text, in order of appearance and
// with original casing.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// AnalyzeEmail runs the email rule catalogue over text. It returns the
// fired indicators and all URLs found in the message.
func AnalyzeEmail(text string) ([]model.Indicator, []string) {
	urls := ExtractURLs(text)
	lower := strings.ToLower(text)

	var out []model.Indicator
	for _, r := range emailRules {
		severity, explanation, ok := r.check(lower, urls)
		if !ok {
			continue
		}
		out = append(out, model.Indicator{
			Name:        r.name,
			Detected:    true,
			Severity:    severity,
			Explanation: explanation,
		})
	}
	return out, urls
}

func matchAll(text string, phrases []string) []string {
	var found []string
	for _, p := range phrases {
		if strings.Contains(text, p) {
			found = append(found, p)
		}
	}
	return found
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
