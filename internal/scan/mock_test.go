package scan

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/risk-analyzer/internal/model"
	"github.com/sells-group/risk-analyzer/internal/store"
)

// --- Reputation Mock ---

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) CheckAll(ctx context.Context, url string) []model.ReputationResult {
	args := m.Called(ctx, url)
	if fn, ok := args.Get(0).(func(string) []model.ReputationResult); ok {
		return fn(url)
	}
	return args.Get(0).([]model.ReputationResult)
}

// --- Intel Mock ---

type mockIntel struct {
	mock.Mock
}

func (m *mockIntel) Gather(ctx context.Context, rawURL string) model.IntelReport {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(model.IntelReport)
}

// --- Classifier Stub ---

type stubPredictor map[string]model.ClassifierResult

func (s stubPredictor) Predict(url string) model.ClassifierResult {
	if r, ok := s[url]; ok {
		return r
	}
	return model.ClassifierResult{Error: "model file not found at models/url_classifier.json"}
}

func prob(p float64) model.ClassifierResult {
	return model.ClassifierResult{Probability: &p, Available: true}
}

// --- Store Fake ---

type recordingStore struct {
	store.Nop
	mu    sync.Mutex
	saved []model.ScanRecord
	bulk  int
	err   error
}

func (r *recordingStore) SaveScan(_ context.Context, rec model.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, rec)
	return nil
}

func (r *recordingStore) SaveScans(_ context.Context, recs []model.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.bulk++
	r.saved = append(r.saved, recs...)
	return nil
}

// --- Feed result helpers ---

func clean() []model.ReputationResult {
	return []model.ReputationResult{
		model.Unavailable("google_safe_browsing", "API key not configured"),
		model.Unavailable("virustotal", "API key not configured"),
		model.Available("phishtank", false, 0),
		model.Available("urlhaus", false, 0),
	}
}

func allUnavailable() []model.ReputationResult {
	return []model.ReputationResult{
		model.Unavailable("google_safe_browsing", "API key not configured"),
		model.Unavailable("virustotal", "API key not configured"),
		model.Unavailable("phishtank", "context deadline exceeded"),
		model.Unavailable("urlhaus", "circuit breaker is open"),
	}
}
