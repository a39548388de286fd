package reputation

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-analyzer/internal/config"
	"github.com/sells-group/risk-analyzer/internal/model"
	"github.com/sells-group/risk-analyzer/internal/resilience"
)

// DefaultTimeout bounds a single feed check.
const DefaultTimeout = 5 * time.Second

// Aggregator fans a URL out to every feed and collects one result per feed.
type Aggregator struct {
	feeds    []Feed
	breakers *resilience.Registry
	timeout  time.Duration
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithTimeout sets the per-feed timeout.
func WithTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithBreakers guards each feed with a breaker from r.
func WithBreakers(r *resilience.Registry) AggregatorOption {
	return func(a *Aggregator) {
		a.breakers = r
	}
}

// NewAggregator creates an Aggregator over feeds. Results keep the order of
// feeds.
func NewAggregator(feeds []Feed, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{feeds: feeds, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FromConfig builds the standard four-feed Aggregator.
func FromConfig(cfg config.ReputationConfig, breakers *resilience.Registry) *Aggregator {
	feeds := []Feed{
		NewSafeBrowsing(cfg.GoogleSafeBrowsingKey, baseURL(cfg.SafeBrowsingURL)...),
		NewVirusTotal(cfg.VirusTotalKey, baseURL(cfg.VirusTotalURL)...),
		NewPhishTank(baseURL(cfg.PhishTankURL)...),
		NewURLhaus(baseURL(cfg.URLhausURL)...),
	}
	return NewAggregator(feeds,
		WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
		WithBreakers(breakers),
	)
}

func baseURL(u string) []Option {
	if u == "" {
		return nil
	}
	return []Option{WithBaseURL(u)}
}

// Sources returns the feed names in result order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.feeds))
	for i, f := range a.feeds {
		names[i] = f.Name()
	}
	return names
}

// CheckAll queries every feed concurrently. It always returns exactly one
// result per feed; a failing, slow, or panicking feed yields an unavailable
// result and never affects the others.
func (a *Aggregator) CheckAll(ctx context.Context, url string) []model.ReputationResult {
	results := make([]model.ReputationResult, len(a.feeds))

	var g errgroup.Group
	for i, f := range a.feeds {
		g.Go(func() error {
			results[i] = a.check(ctx, f, url)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Aggregator) check(ctx context.Context, f Feed, url string) model.ReputationResult {
	name := f.Name()
	if c, ok := f.(Configurable); ok && !c.Configured() {
		return model.Unavailable(name, ErrNotConfigured.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	call := func(ctx context.Context) (v Verdict, err error) {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("reputation: feed panicked", zap.String("source", name), zap.Any("panic", r))
				err = eris.Errorf("feed panicked: %v", r)
			}
		}()
		return f.Check(ctx, url)
	}

	var (
		v   Verdict
		err error
	)
	if a.breakers != nil {
		v, err = resilience.Do(ctx, a.breakers.For(name), call)
	} else {
		v, err = call(ctx)
	}

	switch {
	case err == nil:
		return model.Available(name, v.IsThreat, v.Confidence)
	case errors.Is(err, ErrNotConfigured):
		return model.Unavailable(name, ErrNotConfigured.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		return model.Unavailable(name, resilience.ErrCircuitOpen.Error())
	default:
		zap.L().Debug("reputation: feed unavailable",
			zap.String("source", name),
			zap.String("kind", resilience.Kind(err)),
			zap.Error(err),
		)
		return model.Unavailable(name, err.Error())
	}
}
