// Package scan runs the full analysis pipeline for URLs, email text, bulk
// URL lists and QR images, and records each result to the history store.
package scan

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-analyzer/internal/config"
	"github.com/sells-group/risk-analyzer/internal/heuristics"
	"github.com/sells-group/risk-analyzer/internal/mailparse"
	"github.com/sells-group/risk-analyzer/internal/model"
	"github.com/sells-group/risk-analyzer/internal/scorer"
	"github.com/sells-group/risk-analyzer/internal/store"
)

// Checker queries the reputation feeds for one URL.
type Checker interface {
	CheckAll(ctx context.Context, url string) []model.ReputationResult
}

// IntelSource gathers domain intelligence for one URL.
type IntelSource interface {
	Gather(ctx context.Context, rawURL string) model.IntelReport
}

// Predictor returns classifier evidence for one URL.
type Predictor interface {
	Predict(url string) model.ClassifierResult
}

// Defaults applied when the configuration leaves a limit unset.
const (
	DefaultMaxBulk         = 10
	DefaultMaxConcurrent   = 4
	DefaultMaxEmailURLs    = 5
	DefaultRedirectTimeout = 10 * time.Second
)

// Service scores inputs. It is safe for concurrent use.
type Service struct {
	scorer     *scorer.Scorer
	reputation Checker
	intel      IntelSource
	classifier Predictor
	store      store.Store
	http       *http.Client

	maxBulk         int
	maxConcurrent   int
	maxEmailURLs    int
	maxImageBytes   int64
	redirectTimeout time.Duration

	newID func() string
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIntel enables domain intelligence on URL scans.
func WithIntel(src IntelSource) Option {
	return func(s *Service) { s.intel = src }
}

// WithClassifier enables classifier evidence.
func WithClassifier(p Predictor) Option {
	return func(s *Service) { s.classifier = p }
}

// WithStore records every completed scan to st.
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithHTTPClient sets the client used to follow QR redirects.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) { s.http = hc }
}

// WithClock overrides the scan timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides scan id generation.
func WithIDs(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service. cfg supplies the batch, email and QR limits.
func New(cfg *config.Config, sc *scorer.Scorer, rep Checker, opts ...Option) *Service {
	s := &Service{
		scorer:          sc,
		reputation:      rep,
		http:            http.DefaultClient,
		maxBulk:         cfg.Bulk.MaxURLs,
		maxConcurrent:   cfg.Bulk.MaxConcurrent,
		maxEmailURLs:    cfg.Email.MaxURLs,
		maxImageBytes:   cfg.QR.MaxImageBytes,
		redirectTimeout: time.Duration(cfg.QR.RedirectTimeout) * time.Second,
		newID:           uuid.NewString,
		now:             time.Now,
	}
	if s.maxBulk <= 0 {
		s.maxBulk = DefaultMaxBulk
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = DefaultMaxConcurrent
	}
	if s.maxEmailURLs <= 0 {
		s.maxEmailURLs = DefaultMaxEmailURLs
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = DefaultMaxImageBytes
	}
	if s.redirectTimeout <= 0 {
		s.redirectTimeout = DefaultRedirectTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanURL validates raw and scores it.
func (s *Service) ScanURL(ctx context.Context, raw string) (*model.ScanResult, error) {
	res, err := s.scanURL(ctx, raw)
	if err != nil {
		return nil, err
	}
	s.record(ctx, res)
	return res, nil
}

func (s *Service) scanURL(ctx context.Context, raw string) (*model.ScanResult, error) {
	u, err := NormalizeURL(raw)
	if err != nil {
		return nil, err
	}

	inds := heuristics.AnalyzeURL(u)
	ml, mlStatus := s.predict(u)

	var (
		rep   []model.ReputationResult
		intel *model.IntelReport
		p     panicked
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer p.catch()
		rep = s.reputation.CheckAll(gCtx, u)
		return nil
	})
	if s.intel != nil {
		g.Go(func() error {
			defer p.catch()
			r := s.intel.Gather(gCtx, u)
			intel = &r
			return nil
		})
	}
	_ = g.Wait()
	p.rethrow()

	sub := model.SubScores{
		Domain:     s.scorer.Domain(inds, ml),
		Structural: s.scorer.Structural(inds),
	}
	var apiAvailable bool
	sub.APIReputation, apiAvailable = s.scorer.API(rep)
	overall, label := s.scorer.Overall(sub, apiAvailable)

	zap.L().Debug("scan: url scored",
		zap.String("url", u),
		zap.Int("score", overall),
		zap.String("label", string(label)),
		zap.Bool("api_available", apiAvailable),
	)

	return &model.ScanResult{
		ID:           s.newID(),
		OverallScore: overall,
		Label:        label,
		SubScores:    sub,
		Indicators:   model.DedupeIndicators(inds),
		Education:    scorer.Education(inds, label),
		APIStatus:    model.APIStatus(rep),
		MLStatus:     mlStatus,
		Intel:        intel,
		ScanType:     model.ScanTypeURL,
		ScannedInput: u,
		ScannedAt:    s.now().UTC(),
	}, nil
}

// ScanEmail validates text and scores its language together with up to
// the configured number of embedded URLs. Raw RFC 822 messages are reduced
// to subject and body first.
func (s *Service) ScanEmail(ctx context.Context, text string) (*model.ScanResult, error) {
	content, err := ValidateEmail(text)
	if err != nil {
		return nil, err
	}

	emailInds, urls := heuristics.AnalyzeEmail(mailparse.Body(content))
	if len(urls) > s.maxEmailURLs {
		urls = urls[:s.maxEmailURLs]
	}

	var p panicked
	perURL := make([][]model.ReputationResult, len(urls))
	g, gCtx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			defer p.catch()
			perURL[i] = s.reputation.CheckAll(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()
	p.rethrow()

	var (
		urlInds []model.Indicator
		rep     []model.ReputationResult
	)
	for i, u := range urls {
		urlInds = append(urlInds, heuristics.AnalyzeURL(u)...)
		rep = append(rep, perURL[i]...)
	}

	ml, mlStatus := s.predictAny(urls)
	sub := model.SubScores{
		Domain:     s.scorer.Domain(urlInds, ml),
		Structural: s.scorer.Structural(urlInds),
		Language:   s.scorer.Language(emailInds),
	}
	var apiAvailable bool
	if len(rep) > 0 {
		sub.APIReputation, apiAvailable = s.scorer.API(rep)
	}
	overall, label := s.scorer.Overall(sub, apiAvailable)

	all := make([]model.Indicator, 0, len(emailInds)+len(urlInds))
	all = append(all, emailInds...)
	all = append(all, urlInds...)
	apiStatus := map[string]string{}
	if len(perURL) > 0 {
		apiStatus = model.APIStatus(perURL[0])
	}

	res := &model.ScanResult{
		ID:            s.newID(),
		OverallScore:  overall,
		Label:         label,
		SubScores:     sub,
		Indicators:    model.DedupeIndicators(all),
		Education:     scorer.Education(all, label),
		APIStatus:     apiStatus,
		MLStatus:      mlStatus,
		ScanType:      model.ScanTypeEmail,
		ScannedInput:  truncateInput(content),
		ExtractedURLs: urls,
		ScannedAt:     s.now().UTC(),
	}
	s.record(ctx, res)
	return res, nil
}

// predict returns classifier evidence for u and the status to report.
func (s *Service) predict(u string) (model.ClassifierResult, string) {
	if s.classifier == nil {
		return model.ClassifierResult{}, model.MLStatusDisabled
	}
	r := s.classifier.Predict(u)
	if !r.Available {
		zap.L().Debug("scan: classifier unavailable", zap.String("url", u), zap.String("error", r.Error))
		return r, model.MLStatusUnavailable
	}
	return r, model.MLStatusAvailable
}

// predictAny returns the highest available probability across urls.
func (s *Service) predictAny(urls []string) (model.ClassifierResult, string) {
	if s.classifier == nil {
		return model.ClassifierResult{}, model.MLStatusDisabled
	}
	var best model.ClassifierResult
	for _, u := range urls {
		r, _ := s.predict(u)
		if r.Available && (!best.Available || *r.Probability > *best.Probability) {
			best = r
		}
	}
	if !best.Available {
		return best, model.MLStatusUnavailable
	}
	return best, model.MLStatusAvailable
}

// panicked carries the first panic of a fan-out back to the calling
// goroutine, where item-level recovery can see it.
type panicked struct {
	mu sync.Mutex
	v  any
}

func (p *panicked) catch() {
	if r := recover(); r != nil {
		p.mu.Lock()
		if p.v == nil {
			p.v = r
		}
		p.mu.Unlock()
	}
}

func (p *panicked) rethrow() {
	if p.v != nil {
		panic(p.v)
	}
}

// record saves a result summary. Failures are logged and never surface.
func (s *Service) record(ctx context.Context, res *model.ScanResult) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveScan(ctx, res.Record()); err != nil {
		zap.L().Warn("scan: failed to record scan",
			zap.String("id", res.ID),
			zap.String("scan_type", string(res.ScanType)),
			zap.Error(err),
		)
	}
}
