package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// URLhaus checks the abuse.ch malware URL database. No key needed.
type URLhaus struct {
	client
}

// NewURLhaus creates a URLhaus feed.
func NewURLhaus(opts ...Option) *URLhaus {
	return &URLhaus{client: newClient("https://urlhaus-api.abuse.ch/v1/url/", opts)}
}

// Name implements Feed.
func (u *URLhaus) Name() string { return SourceURLhaus }

// Check implements Feed.
func (u *URLhaus) Check(ctx context.Context, target string) (Verdict, error) {
	form := url.Values{}
	form.Set("url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Verdict{}, eris.Wrap(err, "urlhaus: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	code, body, err := u.send(req)
	if err != nil {
		return Verdict{}, eris.Wrap(err, "urlhaus")
	}
	if err := statusError(code, body); err != nil {
		return Verdict{}, eris.Wrap(err, "urlhaus")
	}

	var resp struct {
		QueryStatus string `json:"query_status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Verdict{}, eris.Wrap(err, "urlhaus: unmarshal response")
	}
	if resp.QueryStatus == "listed" {
		return Verdict{IsThreat: true, Confidence: 1}, nil
	}
	return Verdict{}, nil
}
