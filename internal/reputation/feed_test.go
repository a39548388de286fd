package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-analyzer/internal/resilience"
)

const target = "http://paypa1-secure.xyz/login"

func TestSafeBrowsing_Match(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threatMatches:find", r.URL.Path)
		assert.Equal(t, "sb-key", r.URL.Query().Get("key"))

		var req sbRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "risk-analyzer", req.Client.ClientID)
		assert.Contains(t, req.ThreatInfo.ThreatTypes, "SOCIAL_ENGINEERING")
		require.Len(t, req.ThreatInfo.ThreatEntries, 1)
		assert.Equal(t, target, req.ThreatInfo.ThreatEntries[0].URL)

		w.Write([]byte(`{"matches":[{"threatType":"SOCIAL_ENGINEERING"}]}`))
	}))
	defer srv.Close()

	v, err := NewSafeBrowsing("sb-key", WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, Verdict{IsThreat: true, Confidence: 1}, v)
}

func TestSafeBrowsing_NoMatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	v, err := NewSafeBrowsing("sb-key", WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, Verdict{}, v)
}

func TestSafeBrowsing_NoKeyMakesNoCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewSafeBrowsing("", WithBaseURL(srv.URL)).Check(context.Background(), target)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, calls.Load())
}

func TestVirusTotal_Ratio(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/urls/"+URLID(target), r.URL.Path)
		assert.Equal(t, "vt-key", r.Header.Get("x-apikey"))
		w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":
			{"malicious":4,"suspicious":1,"harmless":60,"undetected":5}}}}`))
	}))
	defer srv.Close()

	v, err := NewVirusTotal("vt-key", WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, v.IsThreat, "5/70 is below the threat ratio")
	assert.Equal(t, 0.0714, v.Confidence)
}

func TestVirusTotal_Threat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{"malicious":3,"harmless":7}}}}`))
	}))
	defer srv.Close()

	v, err := NewVirusTotal("vt-key", WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, v.IsThreat)
	assert.Equal(t, 0.3, v.Confidence)
}

func TestVirusTotal_NotFoundIsClean(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	v, err := NewVirusTotal("vt-key", WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, Verdict{}, v)
}

func TestVirusTotal_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	}))
	defer srv.Close()

	_, err := NewVirusTotal("vt-key", WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.True(t, resilience.IsTransient(err))
}

func TestURLID(t *testing.T) {
	assert.Equal(t, "aHR0cDovL2V4YW1wbGUuY29tLw", URLID("http://example.com/"))
}

func TestPhishTank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		threat bool
	}{
		{"verified phish", `{"results":{"in_database":true,"verified":true,"valid":true}}`, true},
		{"unverified", `{"results":{"in_database":true,"verified":false,"valid":true}}`, false},
		{"not in db", `{"results":{"in_database":false}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, target, r.PostForm.Get("url"))
				assert.Equal(t, "json", r.PostForm.Get("format"))
				assert.Equal(t, "phishtank/risk-analyzer", r.UserAgent())
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			v, err := NewPhishTank(WithBaseURL(srv.URL)).Check(context.Background(), target)
			require.NoError(t, err)
			assert.Equal(t, tt.threat, v.IsThreat)
		})
	}
}

func TestURLhaus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("url") == target {
			w.Write([]byte(`{"query_status":"listed","threat":"malware_download"}`))
			return
		}
		w.Write([]byte(`{"query_status":"no_results"}`))
	}))
	defer srv.Close()

	feed := NewURLhaus(WithBaseURL(srv.URL))

	v, err := feed.Check(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, Verdict{IsThreat: true, Confidence: 1}, v)

	v, err = feed.Check(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, Verdict{}, v)
}

func TestURLhaus_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewURLhaus(WithBaseURL(srv.URL)).Check(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestFeeds_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feeds := []Feed{
		NewSafeBrowsing("k", WithBaseURL(srv.URL)),
		NewVirusTotal("k", WithBaseURL(srv.URL)),
		NewPhishTank(WithBaseURL(srv.URL)),
		NewURLhaus(WithBaseURL(srv.URL)),
	}
	for _, f := range feeds {
		_, err := f.Check(ctx, target)
		assert.Error(t, err, f.Name())
	}
}
