package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

// SafeBrowsing queries the Google Safe Browsing v4 lookup API.
type SafeBrowsing struct {
	client
	apiKey string
}

// NewSafeBrowsing creates a Safe Browsing feed. An empty key leaves the feed
// unconfigured.
func NewSafeBrowsing(apiKey string, opts ...Option) *SafeBrowsing {
	return &SafeBrowsing{
		client: newClient("https://safebrowsing.googleapis.com/v4", opts),
		apiKey: apiKey,
	}
}

// Name implements Feed.
func (s *SafeBrowsing) Name() string { return SourceSafeBrowsing }

// Configured implements Configurable.
func (s *SafeBrowsing) Configured() bool { return s.apiKey != "" }

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string        `json:"threatTypes"`
		PlatformTypes    []string        `json:"platformTypes"`
		ThreatEntryTypes []string        `json:"threatEntryTypes"`
		ThreatEntries    []sbThreatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Check implements Feed. Any match is a threat with full confidence.
func (s *SafeBrowsing) Check(ctx context.Context, target string) (Verdict, error) {
	if s.apiKey == "" {
		return Verdict{}, ErrNotConfigured
	}

	var payload sbRequest
	payload.Client.ClientID = "risk-analyzer"
	payload.Client.ClientVersion = "1.0.0"
	payload.ThreatInfo.ThreatTypes = []string{
		"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION",
	}
	payload.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	payload.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	payload.ThreatInfo.ThreatEntries = []sbThreatEntry{{URL: target}}

	body, err := json.Marshal(payload)
	if err != nil {
		return Verdict{}, eris.Wrap(err, "safebrowsing: marshal request")
	}

	endpoint := s.baseURL + "/threatMatches:find?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, eris.Wrap(err, "safebrowsing: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	code, respBody, err := s.send(req)
	if err != nil {
		return Verdict{}, eris.Wrap(err, "safebrowsing")
	}
	if err := statusError(code, respBody); err != nil {
		return Verdict{}, eris.Wrap(err, "safebrowsing")
	}

	var resp sbResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Verdict{}, eris.Wrap(err, "safebrowsing: unmarshal response")
	}
	if len(resp.Matches) > 0 {
		return Verdict{IsThreat: true, Confidence: 1}, nil
	}
	return Verdict{}, nil
}
