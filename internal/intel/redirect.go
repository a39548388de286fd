package intel

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-analyzer/internal/heuristics"
	"github.com/sells-group/risk-analyzer/internal/model"
)

// DefaultMaxHops bounds a redirect chain.
const DefaultMaxHops = 10

// ErrTooManyRedirects is returned when a chain exceeds its hop limit.
var ErrTooManyRedirects = eris.New("too many redirects")

// Redirect is the end of a followed redirect chain.
type Redirect struct {
	FinalURL string
	Hops     int
}

// FollowRedirects requests rawURL and follows up to maxHops redirects. It
// tries HEAD first and falls back to GET when the server rejects HEAD.
func FollowRedirects(ctx context.Context, hc *http.Client, rawURL string, maxHops int) (Redirect, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	r, status, err := follow(ctx, hc, http.MethodHead, rawURL, maxHops)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		r, _, err = follow(ctx, hc, http.MethodGet, rawURL, maxHops)
	}
	return r, err
}

func follow(ctx context.Context, base *http.Client, method, rawURL string, maxHops int) (Redirect, int, error) {
	hops := 0
	hc := *base
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxHops {
			return ErrTooManyRedirects
		}
		hops = len(via)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return Redirect{}, 0, eris.Wrap(err, "redirect: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) {
			return Redirect{}, 0, eris.Wrapf(ErrTooManyRedirects, "redirect: more than %d hops", maxHops)
		}
		return Redirect{}, 0, eris.Wrap(err, "redirect")
	}
	defer resp.Body.Close() //nolint:errcheck

	return Redirect{FinalURL: resp.Request.URL.String(), Hops: hops}, resp.StatusCode, nil
}

// IsShortener reports whether host belongs to a URL shortening service.
func IsShortener(host string) bool {
	return heuristics.IsShortener(host) || host == "shorturl.at"
}

func (g *Gatherer) unshorten(ctx context.Context, rawURL, host string) model.Lookup[model.UnshortenInfo] {
	if host == "" || !IsShortener(host) {
		return model.Found(model.UnshortenInfo{FinalURL: rawURL})
	}
	r, err := FollowRedirects(ctx, g.http, rawURL, g.maxHops)
	if err != nil {
		return model.NotFound[model.UnshortenInfo](err.Error())
	}
	return model.Found(model.UnshortenInfo{
		IsShortened:         r.FinalURL != rawURL,
		FinalURL:            r.FinalURL,
		RedirectChainLength: r.Hops,
	})
}

// DefaultScreenshotBase renders a 600px wide preview through thum.io.
const DefaultScreenshotBase = "https://image.thum.io/get/width/600/crop/800"

func (g *Gatherer) screenshot(rawURL, host string) model.Lookup[model.ScreenshotInfo] {
	if host == "" {
		return model.NotFound[model.ScreenshotInfo]("Invalid URL")
	}
	return model.Found(model.ScreenshotInfo{URL: g.screenshotBase + "/" + rawURL})
}
