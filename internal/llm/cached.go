package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/cache"
)

// CachedProvider serves repeated prompts from a cache.
// Only successful responses that pass the validator are stored.
type CachedProvider struct {
	Provider
	cache cache.Cache
	ttl   time.Duration
	valid func(text string) bool
}

// NewCached wraps p with c; a zero ttl uses the cache's default
func NewCached(p Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{Provider: p, cache: c, ttl: ttl}
}

// WithValidator rejects replies for which valid returns false: they are
// returned to the caller but never cached, and such cached entries are evicted.
func (p *CachedProvider) WithValidator(valid func(text string) bool) *CachedProvider {
	p.valid = valid
	return p
}

func (p *CachedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key := cache.Key(p.Name(), req.Model, strconv.Itoa(req.MaxTokens), req.Prompt)

	if raw, ok := p.cache.Get(key); ok {
		var cached GenerateResponse
		if err := json.Unmarshal(raw, &cached); err == nil && p.accepts(cached.Text) {
			logrus.WithFields(logrus.Fields{"provider": p.Name(), "key": key}).Debug("generation cache hit")
			return &cached, nil
		}
		_ = p.cache.Delete(key)
	}

	resp, err := p.Provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !p.accepts(resp.Text) {
		logrus.WithField("provider", p.Name()).Debug("reply failed validation, not cached")
		return resp, nil
	}

	raw, err := json.Marshal(resp)
	if err == nil {
		err = p.cache.Set(key, raw, p.ttl)
	}
	if err != nil {
		logrus.WithError(err).Warn("generation cache write failed")
	}
	return resp, nil
}

func (p *CachedProvider) accepts(text string) bool {
	return p.valid == nil || p.valid(text)
}
