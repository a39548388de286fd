// Package scorer fuses heuristic, classifier, and reputation evidence into
// four sub-scores, one overall score, and a label.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-analyzer/internal/config"
)

// Weights is one overall-score weight table. Fields sum to 1.0.
type Weights struct {
	Domain     float64
	Structural float64
	Language   float64
	API        float64
}

// Config holds the scoring constants. The severities and blend factors are
// empirically chosen and treated as fixed configuration.
type Config struct {
	// Full applies when at least one reputation feed was available.
	Full Weights
	// NoAPI redistributes the API weight when no feed was available.
	NoAPI Weights

	// MaxBlend and AvgBlend mix the strongest and the mean severity.
	MaxBlend float64
	AvgBlend float64

	// HeuristicBlend and ClassifierBlend mix the domain heuristic score
	// with the classifier probability when it is available.
	HeuristicBlend  float64
	ClassifierBlend float64

	SafeThreshold       int
	SuspiciousThreshold int
}

// DefaultConfig returns the production scoring constants.
func DefaultConfig() Config {
	return Config{
		Full:  Weights{Domain: 0.35, Structural: 0.25, Language: 0.20, API: 0.20},
		NoAPI: Weights{Domain: 0.44, Structural: 0.31, Language: 0.25, API: 0},

		MaxBlend: 0.6,
		AvgBlend: 0.4,

		HeuristicBlend:  0.6,
		ClassifierBlend: 0.4,

		SafeThreshold:       30,
		SuspiciousThreshold: 60,
	}
}

// FromScoring returns DefaultConfig with the label thresholds taken from s.
func FromScoring(s config.ScoringConfig) Config {
	c := DefaultConfig()
	c.SafeThreshold = s.SafeThreshold
	c.SuspiciousThreshold = s.SuspiciousThreshold
	return c
}

// WeightSum returns the sum of all weights in w.
func WeightSum(w Weights) float64 {
	return w.Domain + w.Structural + w.Language + w.API
}

// ValidateConfig checks that a Config is internally consistent.
func ValidateConfig(c Config) error {
	var errs []string

	tables := []struct {
		name string
		w    Weights
	}{
		{"full", c.Full},
		{"no_api", c.NoAPI},
	}
	for _, t := range tables {
		for name, v := range map[string]float64{
			"domain": t.w.Domain, "structural": t.w.Structural,
			"language": t.w.Language, "api": t.w.API,
		} {
			if v < 0 {
				errs = append(errs, fmt.Sprintf("%s.%s weight must be >= 0", t.name, name))
			}
		}
		if sum := WeightSum(t.w); math.Abs(sum-1) > 1e-9 {
			errs = append(errs, fmt.Sprintf("%s weights should sum to 1.0, got %.4f", t.name, sum))
		}
	}
	if c.NoAPI.API != 0 {
		errs = append(errs, "no_api.api weight must be 0")
	}

	if math.Abs(c.MaxBlend+c.AvgBlend-1) > 1e-9 {
		errs = append(errs, "max_blend + avg_blend must equal 1.0")
	}
	if math.Abs(c.HeuristicBlend+c.ClassifierBlend-1) > 1e-9 {
		errs = append(errs, "heuristic_blend + classifier_blend must equal 1.0")
	}

	if c.SafeThreshold < 0 || c.SafeThreshold > 100 {
		errs = append(errs, "safe_threshold must be between 0 and 100")
	}
	if c.SuspiciousThreshold < 0 || c.SuspiciousThreshold > 100 {
		errs = append(errs, "suspicious_threshold must be between 0 and 100")
	}
	if c.SuspiciousThreshold < c.SafeThreshold {
		errs = append(errs, "suspicious_threshold must be >= safe_threshold")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
