package scan

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ErrInvalidInput is the root of every input rejection.
var ErrInvalidInput = eris.New("invalid input")

// ValidationError rejects input before any scoring runs. Reason is safe to
// show to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrInvalidInput) true for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// MinEmailLength is the shortest email text worth analyzing.
const MinEmailLength = 10

// MaxScannedInput is how much email text is echoed back in a result.
const MaxScannedInput = 200

// urlShape accepts a scheme followed by a hostname label or an IPv4
// address. Anything may follow, so userinfo and odd paths still reach the
// heuristics.
var urlShape = regexp.MustCompile(`(?i)^https?://(?:(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)

// NormalizeURL trims raw, adds http:// when no scheme is given and checks
// the result looks like a URL.
func NormalizeURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", invalid("URL cannot be empty")
	}
	if !hasScheme(u) {
		u = "http://" + u
	}
	if !urlShape.MatchString(u) {
		return "", invalid("Invalid URL format")
	}
	return u, nil
}

func hasScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// ValidateEmail trims text and rejects it when too short to analyze.
func ValidateEmail(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", invalid("Email content cannot be empty")
	}
	if utf8.RuneCountInString(t) < MinEmailLength {
		return "", invalid("Email content is too short to analyze meaningfully")
	}
	return t, nil
}

// ValidateBatch checks a bulk request and drops blank entries. It runs
// before any network call.
func ValidateBatch(urls []string, max int) ([]string, error) {
	if len(urls) == 0 {
		return nil, invalid("URL list cannot be empty")
	}
	if len(urls) > max {
		return nil, invalid("Maximum %d URLs per bulk scan", max)
	}
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return nil, invalid("No valid URLs provided")
	}
	return cleaned, nil
}

// truncateInput shortens s to MaxScannedInput runes plus an ellipsis.
func truncateInput(s string) string {
	if utf8.RuneCountInString(s) <= MaxScannedInput {
		return s
	}
	r := []rune(s)
	return string(r[:MaxScannedInput]) + "..."
}
