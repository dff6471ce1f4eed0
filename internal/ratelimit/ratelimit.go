// Package ratelimit counts requests per identifier in fixed windows backed
// by the remote store, so every handler instance shares one view of the
// counters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/pkg/models"
)

// Limiter enforces fixed-window limits. The window boundary burst is a
// known property of the algorithm: up to 2x maxRequests can land across the
// edge of two adjacent windows.
type Limiter struct {
	exec   *executor.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a limiter.
func New(exec *executor.Client, logger *zap.Logger) *Limiter {
	return &Limiter{
		exec:   exec,
		logger: logger,
		now:    time.Now,
	}
}

// Check counts one request for the identifier in the current window and
// reports whether it is within the limit. The increment and the window TTL
// are applied in one pipelined round trip; INCR itself is atomic at the
// store, so racing callers cannot under-count. On any store failure the
// limiter fails open: the request is allowed and the error is returned for
// callers that want to observe the outage.
func (l *Limiter) Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) (models.RateLimit, error) {
	windowSecs := int64(window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	now := l.now().Unix()
	windowIndex := now / windowSecs
	key := fmt.Sprintf("ratelimit:%s:%d", identifier, windowIndex)
	resetIn := time.Duration(windowSecs-now%windowSecs) * time.Second

	open := models.RateLimit{Allowed: true, Remaining: maxRequests, ResetIn: resetIn}

	results, err := l.exec.Pipeline(ctx, [][]string{
		{"INCR", key},
		{"EXPIRE", key, fmt.Sprintf("%d", windowSecs)},
	})
	if err != nil {
		l.logger.Warn("rate limit check failed, failing open",
			zap.String("identifier", identifier),
			zap.Error(err))
		return open, err
	}
	if err := results[0].Err(); err != nil {
		l.logger.Warn("rate limit increment rejected, failing open",
			zap.String("identifier", identifier),
			zap.Error(err))
		return open, err
	}

	count, err := results[0].Int()
	if err != nil {
		l.logger.Warn("rate limit count unreadable, failing open",
			zap.String("identifier", identifier),
			zap.Error(err))
		return open, err
	}

	remaining := maxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return models.RateLimit{
		Allowed:   int(count) <= maxRequests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}
