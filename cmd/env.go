package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-analyzer/internal/classifier"
	"github.com/sells-group/risk-analyzer/internal/intel"
	"github.com/sells-group/risk-analyzer/internal/reputation"
	"github.com/sells-group/risk-analyzer/internal/resilience"
	"github.com/sells-group/risk-analyzer/internal/scan"
	"github.com/sells-group/risk-analyzer/internal/scorer"
	"github.com/sells-group/risk-analyzer/internal/store"
)

// scanEnv holds the wired dependencies of a scanning command.
type scanEnv struct {
	Store    store.Store
	Service  *scan.Service
	Breakers *resilience.Registry
	Feeds    *reputation.Aggregator
	intel    *intel.Gatherer
}

// Close releases the store and the geolocation database.
func (e *scanEnv) Close() {
	if e.intel != nil {
		if err := e.intel.Close(); err != nil {
			zap.L().Warn("close intel", zap.Error(err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initScanEnv validates the config for mode and wires the scan service.
func initScanEnv(ctx context.Context, mode string) (*scanEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	sc := scorer.FromScoring(cfg.Scoring)
	if err := scorer.ValidateConfig(sc); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &scanEnv{Store: st}

	env.Breakers = resilience.NewRegistry(resilience.FromConfig(cfg.Circuit))
	env.Feeds = reputation.FromConfig(cfg.Reputation, env.Breakers)

	opts := []scan.Option{scan.WithStore(st)}

	if cfg.Intel.Enabled {
		g, err := intel.New(cfg.Intel)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "init intel")
		}
		env.intel = g
		opts = append(opts, scan.WithIntel(g))
	} else {
		zap.L().Debug("domain intelligence disabled")
	}

	if cfg.Model.Enabled {
		opts = append(opts, scan.WithClassifier(classifier.NewAdapter(classifier.Default(cfg.Model.Path))))
		zap.L().Info("url classifier enabled", zap.String("path", cfg.Model.Path))
	}

	env.Service = scan.New(cfg, scorer.New(sc), env.Feeds, opts...)

	zap.L().Debug("scan environment ready",
		zap.Strings("feeds", env.Feeds.Sources()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("intel", cfg.Intel.Enabled),
		zap.Bool("classifier", cfg.Model.Enabled),
	)
	return env, nil
}

// initStore opens and migrates the configured history store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
