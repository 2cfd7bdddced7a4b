package cli

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/cache"
	"github.com/ppiankov/hrintel/internal/detect"
	"github.com/ppiankov/hrintel/internal/llm"
	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/source"
	"github.com/ppiankov/hrintel/internal/store"
	"github.com/ppiankov/hrintel/internal/worker"
)

// app bundles the components a command needs, built from one config
type app struct {
	cfg      *model.Config
	log      logrus.FieldLogger
	detector *detect.Detector
	provider llm.Provider // nil when no backend is configured
	analyzer *analyze.Analyzer
	fetcher  *source.Fetcher
	store    *store.Store // nil unless store.enabled
}

// newApp wires detector, backend, analyzer and fetcher. The backend is
// wrapped as cache -> rate limit -> provider so cache hits skip the limiter.
// Only replies that parse into an analysis are cached.
func newApp(cfg *model.Config, withStore bool) (*app, error) {
	log := logrus.StandardLogger()
	a := &app{
		cfg:      cfg,
		log:      log,
		detector: detect.NewDetector(log),
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	p, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("configuring provider: %w", err)
	}
	if p != nil {
		p = llm.NewRateLimited(p, limiter)
		if cfg.Cache.Enabled {
			c := cache.New(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
			p = llm.NewCached(p, c, cfg.Cache.DiskTTL).WithValidator(analyze.ValidResponse)
		}
		a.provider = p
		log.WithFields(logrus.Fields{
			"provider": p.Name(),
			"model":    cfg.LLM.Model,
			"cache":    cfg.Cache.Enabled,
		}).Debug("text-generation backend configured")
	} else {
		log.Debug("no text-generation provider configured, analyses will be degraded")
	}

	a.analyzer = analyze.New(a.provider,
		analyze.WithLogger(log),
		analyze.WithDetector(a.detector),
		analyze.WithModel(cfg.LLM.Model),
		analyze.WithConfig(cfg.Analysis),
	)
	a.fetcher = source.NewFetcher(cfg.HTTP, limiter)

	if withStore && cfg.Store.Enabled {
		st, err := store.Open(filepath.Clean(cfg.Store.Path))
		if err != nil {
			return nil, fmt.Errorf("opening analysis store: %w", err)
		}
		a.store = st
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("closing analysis store")
		}
	}
}
