// Package classifier wraps an externally trained URL classifier behind a
// probability contract that tolerates a missing or broken model.
package classifier

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/risk-analyzer/internal/features"
)

// Model returns the phishing-class probability for a feature vector.
type Model interface {
	PredictProba(v features.Vector) (float64, error)
}

// LinearModel is a logistic regression exported from training. Features
// are standardized with Means and Scales when present.
type LinearModel struct {
	FeatureNames []string  `json:"feature_names" yaml:"feature_names"`
	Weights      []float64 `json:"weights" yaml:"weights"`
	Intercept    float64   `json:"intercept" yaml:"intercept"`
	Means        []float64 `json:"means,omitempty" yaml:"means,omitempty"`
	Scales       []float64 `json:"scales,omitempty" yaml:"scales,omitempty"`
}

// Validate checks that m matches the feature contract.
func (m *LinearModel) Validate() error {
	if len(m.FeatureNames) != features.Count {
		return eris.Errorf("classifier: model has %d features, want %d", len(m.FeatureNames), features.Count)
	}
	for i, name := range m.FeatureNames {
		if name != features.Names[i] {
			return eris.Errorf("classifier: feature %d is %q, want %q", i, name, features.Names[i])
		}
	}
	if len(m.Weights) != features.Count {
		return eris.Errorf("classifier: model has %d weights, want %d", len(m.Weights), features.Count)
	}
	if m.Means != nil && len(m.Means) != features.Count {
		return eris.New("classifier: means length does not match features")
	}
	if m.Scales != nil && len(m.Scales) != features.Count {
		return eris.New("classifier: scales length does not match features")
	}
	return nil
}

// PredictProba implements Model.
func (m *LinearModel) PredictProba(v features.Vector) (float64, error) {
	z := m.Intercept
	for i, x := range v {
		if m.Means != nil {
			x -= m.Means[i]
		}
		if m.Scales != nil {
			if m.Scales[i] == 0 {
				return 0, eris.Errorf("classifier: zero scale for %s", features.Names[i])
			}
			x /= m.Scales[i]
		}
		z += m.Weights[i] * x
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, eris.New("classifier: probability is NaN")
	}
	return p, nil
}

// ErrModelMissing is wrapped by LoadFile when the artifact does not exist.
var ErrModelMissing = eris.New("model file not found")

// LoadFile reads a LinearModel from a .json, .yaml, or .yml file.
func LoadFile(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrModelMissing, "classifier: %s", path)
		}
		return nil, eris.Wrap(err, "classifier: read model")
	}

	var m LinearModel
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, eris.Wrap(err, "classifier: decode model")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
