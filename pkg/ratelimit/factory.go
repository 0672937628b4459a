package ratelimit

import (
	"github.com/cascadehq/cascade/pkg/config"
)

// NewFromConfig creates a Limiter from configuration. If rate limiting
// is disabled, returns nil; callers treat a nil limiter as unlimited.
//
// Example config:
//
//	rate_limit:
//	  policy: token_bucket
//	  capacity: 20
//	  refill: 500ms
func NewFromConfig(cfg *config.RateLimitConfig) (Limiter, error) {
	if cfg == nil || !cfg.IsEnabled() {
		return nil, nil
	}

	policy, err := ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	switch policy {
	case PolicyTokenBucket:
		return NewTokenBucket(cfg.Capacity, cfg.Refill)
	case PolicySlidingWindow:
		return NewSlidingWindow(cfg.Capacity, cfg.Window)
	default:
		return NewConcurrency(cfg.Capacity)
	}
}
