package classifier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-analyzer/internal/features"
	"github.com/sells-group/risk-analyzer/internal/model"
)

// Loader owns the process-wide model state. The first GetOrLoad call loads
// the artifact; every later call returns the cached model or the cached
// failure. A failed load is never retried.
type Loader struct {
	path string
	load func(path string) (Model, error)

	mu     sync.Mutex
	loaded bool
	model  Model
	err    error
}

// NewLoader creates a Loader for the artifact at path.
func NewLoader(path string) *Loader {
	return &Loader{
		path: path,
		load: func(p string) (Model, error) {
			m, err := LoadFile(p)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

// GetOrLoad returns the model, loading it on first use.
func (l *Loader) GetOrLoad() (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.model, l.err
	}
	l.loaded = true

	m, err := l.safeLoad()
	switch {
	case errors.Is(err, ErrModelMissing):
		l.err = eris.Errorf("model file not found at %s", l.path)
	case err != nil:
		l.err = eris.Wrap(err, "failed to load model")
	case m == nil:
		l.err = eris.New("failed to load model: loader returned no model")
	default:
		l.model = m
	}
	if l.err != nil {
		zap.L().Warn("classifier: model unavailable", zap.String("path", l.path), zap.Error(l.err))
	} else {
		zap.L().Info("classifier: model loaded", zap.String("path", l.path))
	}
	return l.model, l.err
}

// safeLoad runs the load func, turning a panic into an error.
func (l *Loader) safeLoad() (m Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, eris.Errorf("loader panicked: %v", r)
		}
	}()
	return l.load(l.path)
}

var (
	defaultMu      sync.Mutex
	defaultLoaders = map[string]*Loader{}
)

// Default returns the process-wide Loader for path.
func Default(path string) *Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	l, ok := defaultLoaders[path]
	if !ok {
		l = NewLoader(path)
		defaultLoaders[path] = l
	}
	return l
}

// Adapter turns a URL into ClassifierResult evidence.
type Adapter struct {
	loader *Loader
}

// NewAdapter creates an Adapter backed by loader.
func NewAdapter(loader *Loader) *Adapter {
	return &Adapter{loader: loader}
}

// Predict scores url. It never returns an error or panics; every failure is
// reported as an unavailable result with a reason.
func (a *Adapter) Predict(url string) (res model.ClassifierResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.ClassifierResult{Error: fmt.Sprintf("prediction failed: %v", r)}
		}
	}()

	m, err := a.loader.GetOrLoad()
	if err != nil {
		return model.ClassifierResult{Error: err.Error()}
	}

	p, err := m.PredictProba(features.Extract(url))
	if err != nil {
		return model.ClassifierResult{Error: fmt.Sprintf("prediction failed: %v", err)}
	}
	if p < 0 || p > 1 {
		return model.ClassifierResult{Error: fmt.Sprintf("prediction failed: probability %v out of range", p)}
	}
	p = features.Round4(p)
	return model.ClassifierResult{Probability: &p, Available: true}
}
