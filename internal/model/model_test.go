package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity float64
		want     SeverityLevel
	}{
		{0, SeverityLow},
		{0.35, SeverityLow},
		{0.3999, SeverityLow},
		{0.4, SeverityMedium},
		{0.6, SeverityMedium},
		{0.6999, SeverityMedium},
		{0.7, SeverityHigh},
		{0.95, SeverityHigh},
		{1, SeverityHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketSeverity(tt.severity), "severity %v", tt.severity)
	}
}

func TestDedupeIndicators(t *testing.T) {
	t.Parallel()

	in := []Indicator{
		{Name: "Missing HTTPS", Detected: true, Severity: 0.6, Explanation: "first"},
		{Name: "IP Address Instead of Domain", Detected: true, Severity: 0.85, Explanation: "ip"},
		{Name: "Missing HTTPS", Detected: true, Severity: 0.6, Explanation: "second"},
		{Name: "Generic Greeting", Detected: false, Severity: 0.35},
	}

	got := DedupeIndicators(in)
	require.Len(t, got, 2)
	assert.Equal(t, "Missing HTTPS", got[0].Name)
	assert.Equal(t, "first", got[0].Explanation)
	assert.Equal(t, SeverityMedium, got[0].Severity)
	assert.Equal(t, SeverityHigh, got[1].Severity)
}

func TestDedupeIndicators_Empty(t *testing.T) {
	t.Parallel()
	got := DedupeIndicators(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAPIStatus(t *testing.T) {
	t.Parallel()

	status := APIStatus([]ReputationResult{
		Available("phishtank", false, 0),
		Unavailable("virustotal", "API key not configured"),
	})
	assert.Equal(t, map[string]string{
		"phishtank":  "available",
		"virustotal": "unavailable",
	}, status)
}

func TestUnavailableResultFields(t *testing.T) {
	t.Parallel()

	r := Unavailable("urlhaus", "timeout")
	assert.True(t, r.Unavailable)
	assert.False(t, r.IsThreat)
	assert.Zero(t, r.Confidence)
	assert.Equal(t, "timeout", r.Error)
}

func TestLookupJSON(t *testing.T) {
	t.Parallel()

	found := Found(ScreenshotInfo{URL: "https://image.example/x"})
	b, err := json.Marshal(found)
	require.NoError(t, err)
	assert.JSONEq(t, `{"available":true,"data":{"url":"https://image.example/x"}}`, string(b))

	missing := NotFound[WHOISInfo]("no whois server")
	b, err = json.Marshal(missing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"available":false,"error":"no whois server"}`, string(b))
}

func TestScanResultRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &ScanResult{
		ID:           "abc",
		OverallScore: 43,
		Label:        LabelSuspicious,
		SubScores:    SubScores{Domain: 60, Structural: 54},
		ScanType:     ScanTypeURL,
		ScannedInput: "http://192.168.1.1/banking/login",
		Indicators:   []DetectedIndicator{{Name: "Missing HTTPS"}},
		ScannedAt:    now,
	}

	rec := r.Record()
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, 43, rec.OverallScore)
	assert.Equal(t, LabelSuspicious, rec.Label)
	assert.Equal(t, ScanTypeURL, rec.ScanType)
	assert.Equal(t, "http://192.168.1.1/banking/login", rec.Input)
	assert.Equal(t, 60, rec.SubScores.Domain)
	assert.Equal(t, now, rec.CreatedAt)
}
