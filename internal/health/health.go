// Package health probes the remote store so callers can decide whether to
// degrade before attempting full operations.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/pkg/models"
)

// Checker measures store round-trip health.
type Checker struct {
	exec   *executor.Client
	logger *zap.Logger
}

// New creates a health checker.
func New(exec *executor.Client, logger *zap.Logger) *Checker {
	return &Checker{exec: exec, logger: logger}
}

// Check sends a PING and measures the round trip. Connected is false on
// any failure, including an unconfigured store.
func (c *Checker) Check(ctx context.Context) models.Health {
	start := time.Now()
	_, err := c.exec.Execute(ctx, []string{"PING"})
	if err != nil {
		c.logger.Warn("store health check failed", zap.Error(err))
		return models.Health{Connected: false}
	}
	return models.Health{
		Connected: true,
		Latency:   time.Since(start),
	}
}
