package scorer

import (
	"math"

	"github.com/sells-group/risk-analyzer/internal/heuristics"
	"github.com/sells-group/risk-analyzer/internal/model"
)

var domainCategory = map[string]bool{
	heuristics.IPAddress:           true,
	heuristics.SuspiciousTLD:       true,
	heuristics.BrandImpersonation:  true,
	heuristics.ExcessiveSubdomains: true,
	heuristics.Shortener:           true,
}

var structuralCategory = map[string]bool{
	heuristics.ExcessiveLength: true,
	heuristics.AtSymbol:        true,
	heuristics.Obfuscation:     true,
	heuristics.SuspiciousPath:  true,
	heuristics.MissingHTTPS:    true,
}

// Scorer computes sub-scores and the overall score. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New creates a Scorer.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scoring constants in use.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Domain scores the domain-identity indicators, blended with the
// classifier probability when ml is available.
func (s *Scorer) Domain(indicators []model.Indicator, ml model.ClassifierResult) int {
	score := s.blend(filter(indicators, domainCategory))
	if ml.Available && ml.Probability != nil {
		score = s.cfg.HeuristicBlend*score + s.cfg.ClassifierBlend*(*ml.Probability*100)
	}
	return finish(score)
}

// Structural scores the URL-structure indicators.
func (s *Scorer) Structural(indicators []model.Indicator) int {
	return finish(s.blend(filter(indicators, structuralCategory)))
}

// Language scores email text indicators. It is 0 for URL-only scans.
func (s *Scorer) Language(indicators []model.Indicator) int {
	var sum float64
	n := 0
	for _, ind := range indicators {
		if !ind.Detected {
			continue
		}
		sum += ind.Severity
		n++
	}
	if n == 0 {
		return 0
	}
	avg := sum / float64(n)
	return finish(avg * 100 * math.Min(1, float64(n)*0.2))
}

// API scores the reputation results. available is false when no feed
// produced usable evidence, in which case the score is 0.
func (s *Scorer) API(results []model.ReputationResult) (score int, available bool) {
	var checked, threats int
	var confidence float64
	for _, r := range results {
		if r.Unavailable {
			continue
		}
		checked++
		if r.IsThreat {
			threats++
			confidence += r.Confidence
		}
	}
	if checked == 0 {
		return 0, false
	}
	if threats == 0 {
		return 0, true
	}
	ratio := float64(threats) / float64(checked)
	return finish(ratio*60 + confidence/float64(threats)*40), true
}

// Overall combines the sub-scores with the weight table selected by
// reputation availability and labels the result.
func (s *Scorer) Overall(sub model.SubScores, apiAvailable bool) (int, model.Label) {
	w := s.cfg.NoAPI
	if apiAvailable {
		w = s.cfg.Full
	}
	overall := float64(sub.Domain)*w.Domain +
		float64(sub.Structural)*w.Structural +
		float64(sub.Language)*w.Language +
		float64(sub.APIReputation)*w.API
	score := finish(overall)
	return score, s.Classify(score)
}

// Classify maps an overall score to a label using the configured
// thresholds. Both thresholds are inclusive upper bounds.
func (s *Scorer) Classify(score int) model.Label {
	switch {
	case score <= s.cfg.SafeThreshold:
		return model.LabelSafe
	case score <= s.cfg.SuspiciousThreshold:
		return model.LabelSuspicious
	default:
		return model.LabelDangerous
	}
}

// blend applies the max/average severity blend and count boost to a
// category, on a 0-100 scale. An empty category scores 0.
func (s *Scorer) blend(inds []model.Indicator) float64 {
	if len(inds) == 0 {
		return 0
	}
	maxSev, sum := 0.0, 0.0
	for _, ind := range inds {
		maxSev = math.Max(maxSev, ind.Severity)
		sum += ind.Severity
	}
	avg := sum / float64(len(inds))
	blended := s.cfg.MaxBlend*maxSev + s.cfg.AvgBlend*avg
	boost := math.Min(1, 0.5+0.2*float64(len(inds)))
	return blended * 100 * boost
}

func filter(indicators []model.Indicator, category map[string]bool) []model.Indicator {
	var out []model.Indicator
	for _, ind := range indicators {
		if ind.Detected && category[ind.Name] {
			out = append(out, ind)
		}
	}
	return out
}

// finish clamps to [0,100] and rounds half away from zero.
func finish(x float64) int {
	return int(math.Round(math.Max(0, math.Min(100, x))))
}
