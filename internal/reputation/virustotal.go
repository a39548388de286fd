package reputation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
)

// threatRatio is the share of flagging engines above which a URL counts as
// a threat.
const threatRatio = 0.1

// VirusTotal looks up prior analyses through the VirusTotal v3 API.
type VirusTotal struct {
	client
	apiKey string
}

// NewVirusTotal creates a VirusTotal feed. An empty key leaves the feed
// unconfigured.
func NewVirusTotal(apiKey string, opts ...Option) *VirusTotal {
	return &VirusTotal{
		client: newClient("https://www.virustotal.com/api/v3", opts),
		apiKey: apiKey,
	}
}

// Name implements Feed.
func (v *VirusTotal) Name() string { return SourceVirusTotal }

// Configured implements Configurable.
func (v *VirusTotal) Configured() bool { return v.apiKey != "" }

type vtResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats map[string]int `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// URLID is the VirusTotal identifier for a URL: unpadded URL-safe base64.
func URLID(target string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(target))
}

// Check implements Feed. A URL VirusTotal has never seen is reported as a
// clean answer, not an outage.
func (v *VirusTotal) Check(ctx context.Context, target string) (Verdict, error) {
	if v.apiKey == "" {
		return Verdict{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/urls/"+URLID(target), nil)
	if err != nil {
		return Verdict{}, eris.Wrap(err, "virustotal: create request")
	}
	req.Header.Set("x-apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	code, body, err := v.send(req)
	if err != nil {
		return Verdict{}, eris.Wrap(err, "virustotal")
	}
	if code == http.StatusNotFound {
		return Verdict{}, nil
	}
	if err := statusError(code, body); err != nil {
		return Verdict{}, eris.Wrap(err, "virustotal")
	}

	var resp vtResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Verdict{}, eris.Wrap(err, "virustotal: unmarshal response")
	}

	stats := resp.Data.Attributes.LastAnalysisStats
	total := 0
	for _, n := range stats {
		total += n
	}
	if total == 0 {
		return Verdict{}, nil
	}
	ratio := float64(stats["malicious"]+stats["suspicious"]) / float64(total)
	return Verdict{IsThreat: ratio > threatRatio, Confidence: round4(ratio)}, nil
}
