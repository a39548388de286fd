// Package intel gathers domain intelligence for a URL: registration data,
// TLS certificate, resolved address and location, shortener destination, and
// a screenshot link.
package intel

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-analyzer/internal/config"
	"github.com/sells-group/risk-analyzer/internal/features"
	"github.com/sells-group/risk-analyzer/internal/model"
)

// Resolver returns the addresses of a host.
type Resolver func(ctx context.Context, host string) ([]string, error)

// Gatherer runs every intel lookup for a URL.
type Gatherer struct {
	timeout        time.Duration
	whois          WHOISFunc
	resolve        Resolver
	locator        Locator
	http           *http.Client
	rootCAs        *x509.CertPool
	screenshotBase string
	maxHops        int
	now            func() time.Time
	closers        []func() error
}

// Option configures a Gatherer.
type Option func(*Gatherer)

// WithWHOIS replaces the WHOIS client.
func WithWHOIS(fn WHOISFunc) Option {
	return func(g *Gatherer) { g.whois = fn }
}

// WithResolver replaces DNS resolution.
func WithResolver(fn Resolver) Option {
	return func(g *Gatherer) { g.resolve = fn }
}

// WithLocator replaces the IP geolocation backend.
func WithLocator(l Locator) Option {
	return func(g *Gatherer) { g.locator = l }
}

// WithHTTPClient sets the client used to follow shortener redirects.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gatherer) { g.http = hc }
}

// WithRootCAs sets the pool used to verify certificates (for testing).
func WithRootCAs(pool *x509.CertPool) Option {
	return func(g *Gatherer) { g.rootCAs = pool }
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(g *Gatherer) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New builds a Gatherer from cfg. When cfg names a GeoLite2 City database it
// is used for geolocation; otherwise the ip-api JSON service is queried.
func New(cfg config.IntelConfig, opts ...Option) (*Gatherer, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	g := &Gatherer{
		timeout:        timeout,
		whois:          NewWHOISClient(timeout),
		resolve:        net.DefaultResolver.LookupHost,
		http:           &http.Client{Timeout: timeout},
		screenshotBase: cfg.ScreenshotBase,
		maxHops:        cfg.UnshortenMaxHops,
		now:            time.Now,
	}
	if g.screenshotBase == "" {
		g.screenshotBase = DefaultScreenshotBase
	}
	if g.maxHops <= 0 {
		g.maxHops = DefaultMaxHops
	}

	if cfg.GeoIPCityDB != "" {
		mm, err := OpenMaxMind(cfg.GeoIPCityDB)
		if err != nil {
			return nil, err
		}
		g.locator = mm
		g.closers = append(g.closers, mm.Close)
	} else {
		g.locator = NewIPAPI(cfg.GeoBaseURL, cfg.GeoRatePerMin, &http.Client{Timeout: timeout})
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close releases the geolocation database, if any.
func (g *Gatherer) Close() error {
	var errs []error
	for _, c := range g.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("intel: close: %v", errs)
	}
	return nil
}

// Gather runs all lookups for rawURL concurrently. Each lookup reports its
// own failure; Gather itself never fails.
func (g *Gatherer) Gather(ctx context.Context, rawURL string) model.IntelReport {
	host := features.Split(rawURL).Host
	var report model.IntelReport

	var eg errgroup.Group
	eg.Go(func() error {
		report.WHOIS = guard("whois", func() model.Lookup[model.WHOISInfo] {
			ctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return g.lookupWHOIS(ctx, host)
		})
		return nil
	})
	eg.Go(func() error {
		report.SSL = guard("ssl", func() model.Lookup[model.SSLInfo] {
			ctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return g.lookupSSL(ctx, rawURL)
		})
		return nil
	})
	eg.Go(func() error {
		report.DNSGeo = guard("dns_geo", func() model.Lookup[model.GeoInfo] {
			ctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return g.lookupGeo(ctx, host)
		})
		return nil
	})
	eg.Go(func() error {
		report.Unshorten = guard("unshorten", func() model.Lookup[model.UnshortenInfo] {
			ctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return g.unshorten(ctx, rawURL, host)
		})
		return nil
	})
	report.Screenshot = g.screenshot(rawURL, host)

	_ = eg.Wait()
	return report
}

func guard[T any](name string, fn func() model.Lookup[T]) (res model.Lookup[T]) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("intel: lookup panicked", zap.String("lookup", name), zap.Any("panic", r))
			res = model.NotFound[T](fmt.Sprintf("lookup failed: %v", r))
		}
	}()
	return fn()
}
