package model

// Indicator is one fired heuristic rule. Rules that do not fire produce no
// Indicator, so Detected is always true on values built by the analyzers.
type Indicator struct {
	Name        string  `json:"name"`
	Detected    bool    `json:"detected"`
	Severity    float64 `json:"severity"`
	Explanation string  `json:"explanation"`
}

// SeverityLevel is the bucketed severity shown to users.
type SeverityLevel string

const (
	SeverityLow    SeverityLevel = "low"
	SeverityMedium SeverityLevel = "medium"
	SeverityHigh   SeverityLevel = "high"
)

// BucketSeverity maps a rule severity in [0,1] to low/medium/high.
func BucketSeverity(severity float64) SeverityLevel {
	switch {
	case severity >= 0.7:
		return SeverityHigh
	case severity >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DetectedIndicator is the response form of an Indicator.
type DetectedIndicator struct {
	Name        string        `json:"name"`
	Severity    SeverityLevel `json:"severity"`
	Explanation string        `json:"explanation"`
}

// DedupeIndicators returns the detected indicators with duplicate names
// removed (first occurrence wins) and severities bucketed.
func DedupeIndicators(indicators []Indicator) []DetectedIndicator {
	out := make([]DetectedIndicator, 0, len(indicators))
	seen := make(map[string]bool, len(indicators))
	for _, ind := range indicators {
		if !ind.Detected || seen[ind.Name] {
			continue
		}
		seen[ind.Name] = true
		out = append(out, DetectedIndicator{
			Name:        ind.Name,
			Severity:    BucketSeverity(ind.Severity),
			Explanation: ind.Explanation,
		})
	}
	return out
}
