package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/storetest"
)

func TestCheck_Connected(t *testing.T) {
	srv := storetest.New()
	t.Cleanup(srv.Close)

	checker := New(executor.New(srv.Config(), zaptest.NewLogger(t)), zaptest.NewLogger(t))

	status := checker.Check(context.Background())
	assert.True(t, status.Connected)
	assert.Greater(t, status.Latency, time.Duration(0))
}

func TestCheck_Unreachable(t *testing.T) {
	srv := storetest.New()
	srv.Close()

	checker := New(executor.New(srv.Config(), zaptest.NewLogger(t)), zaptest.NewLogger(t))

	status := checker.Check(context.Background())
	assert.False(t, status.Connected)
	assert.Zero(t, status.Latency)
}

func TestCheck_Unconfigured(t *testing.T) {
	checker := New(executor.New(&executor.Config{}, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	status := checker.Check(context.Background())
	assert.False(t, status.Connected)
}
