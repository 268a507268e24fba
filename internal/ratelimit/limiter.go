// Package ratelimit throttles API callers per key, in Redis when it is
// configured and in process memory otherwise.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultLimit  = 120
	DefaultWindow = time.Minute
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*RateLimitInfo, error)
}

type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

func validate(limit int, window time.Duration) error {
	if limit <= 0 {
		return errors.New("limit must be greater than 0")
	}
	if window <= 0 {
		return errors.New("window must be greater than 0")
	}
	return nil
}
