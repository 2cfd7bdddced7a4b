package llm

import (
	"context"
	"fmt"
)

// Waiter blocks until a call under key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// RateLimitedProvider throttles Generate calls per provider name
type RateLimitedProvider struct {
	Provider
	limiter Waiter
}

// NewRateLimited wraps p so every Generate call first waits on limiter
func NewRateLimited(p Provider, limiter Waiter) *RateLimitedProvider {
	return &RateLimitedProvider{Provider: p, limiter: limiter}
}

func (p *RateLimitedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return p.Provider.Generate(ctx, req)
}
