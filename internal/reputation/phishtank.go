package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// PhishTank checks the community-verified PhishTank database. No key needed.
type PhishTank struct {
	client
}

// NewPhishTank creates a PhishTank feed.
func NewPhishTank(opts ...Option) *PhishTank {
	return &PhishTank{client: newClient("https://checkurl.phishtank.com/checkurl/", opts)}
}

// Name implements Feed.
func (p *PhishTank) Name() string { return SourcePhishTank }

type ptResponse struct {
	Results struct {
		InDatabase bool `json:"in_database"`
		Verified   bool `json:"verified"`
		Valid      bool `json:"valid"`
	} `json:"results"`
}

// Check implements Feed. Only entries that are in the database, verified,
// and still valid count as phishing.
func (p *PhishTank) Check(ctx context.Context, target string) (Verdict, error) {
	form := url.Values{}
	form.Set("url", target)
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Verdict{}, eris.Wrap(err, "phishtank: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "phishtank/risk-analyzer")

	code, body, err := p.send(req)
	if err != nil {
		return Verdict{}, eris.Wrap(err, "phishtank")
	}
	if err := statusError(code, body); err != nil {
		return Verdict{}, eris.Wrap(err, "phishtank")
	}

	var resp ptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Verdict{}, eris.Wrap(err, "phishtank: unmarshal response")
	}
	r := resp.Results
	if r.InDatabase && r.Verified && r.Valid {
		return Verdict{IsThreat: true, Confidence: 1}, nil
	}
	return Verdict{}, nil
}
