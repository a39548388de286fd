package model

// ReputationResult is the outcome of one threat feed check. When Unavailable
// is true, IsThreat and Confidence carry no meaning and must be ignored.
type ReputationResult struct {
	Source      string  `json:"source"`
	IsThreat    bool    `json:"is_threat"`
	Confidence  float64 `json:"confidence"`
	Unavailable bool    `json:"unavailable"`
	Error       string  `json:"error,omitempty"`
}

// Available reports a feed result that may be used for scoring.
func Available(source string, isThreat bool, confidence float64) ReputationResult {
	return ReputationResult{Source: source, IsThreat: isThreat, Confidence: confidence}
}

// Unavailable reports a feed that could not contribute evidence.
func Unavailable(source, reason string) ReputationResult {
	return ReputationResult{Source: source, Unavailable: true, Error: reason}
}

// APIStatus maps each feed to "available" or "unavailable".
func APIStatus(results []ReputationResult) map[string]string {
	status := make(map[string]string, len(results))
	for _, r := range results {
		if r.Unavailable {
			status[r.Source] = "unavailable"
		} else {
			status[r.Source] = "available"
		}
	}
	return status
}

// ClassifierResult is optional evidence from the URL classifier.
type ClassifierResult struct {
	Probability *float64 `json:"probability"`
	Available   bool     `json:"available"`
	Error       string   `json:"error,omitempty"`
}
