package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/storetest"
)

func setupClient(t *testing.T) (*executor.Client, *storetest.Server) {
	srv := storetest.New()
	t.Cleanup(srv.Close)
	return executor.New(srv.Config(), zaptest.NewLogger(t)), srv
}

func TestExecute_NotConfigured(t *testing.T) {
	client := executor.New(&executor.Config{}, zaptest.NewLogger(t))

	_, err := client.Execute(context.Background(), []string{"PING"})
	assert.ErrorIs(t, err, executor.ErrNotConfigured)

	_, err = client.Pipeline(context.Background(), [][]string{{"PING"}})
	assert.ErrorIs(t, err, executor.ErrNotConfigured)
}

func TestExecute_MissingToken(t *testing.T) {
	srv := storetest.New()
	t.Cleanup(srv.Close)

	client := executor.New(&executor.Config{RestURL: srv.URL()}, zaptest.NewLogger(t))
	_, err := client.Execute(context.Background(), []string{"PING"})
	assert.ErrorIs(t, err, executor.ErrNotConfigured)
}

func TestExecute_RoundTrip(t *testing.T) {
	client, _ := setupClient(t)
	ctx := context.Background()

	result, err := client.Execute(ctx, []string{"SET", "greeting", "hello"})
	require.NoError(t, err)
	v, ok := result.Str()
	assert.True(t, ok)
	assert.Equal(t, "OK", v)

	result, err = client.Execute(ctx, []string{"GET", "greeting"})
	require.NoError(t, err)
	v, ok = result.Str()
	assert.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestExecute_NilResult(t *testing.T) {
	client, _ := setupClient(t)

	result, err := client.Execute(context.Background(), []string{"GET", "missing"})
	require.NoError(t, err)
	assert.True(t, result.IsNil())

	_, ok := result.Str()
	assert.False(t, ok)
}

func TestExecute_TransportError(t *testing.T) {
	client, srv := setupClient(t)
	srv.FailWith(500)

	_, err := client.Execute(context.Background(), []string{"PING"})
	var transportErr *executor.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 500, transportErr.StatusCode)
}

func TestExecute_StoreError(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.Execute(context.Background(), []string{"NOSUCHCOMMAND"})
	var storeErr *executor.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Contains(t, storeErr.Message, "unknown command")
}

func TestExecute_Unreachable(t *testing.T) {
	client, srv := setupClient(t)
	srv.Close()

	_, err := client.Execute(context.Background(), []string{"PING"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, executor.ErrNotConfigured))
}

func TestPipeline_OrderedResults(t *testing.T) {
	client, _ := setupClient(t)

	results, err := client.Pipeline(context.Background(), [][]string{
		{"INCR", "counter"},
		{"INCR", "counter"},
		{"INCR", "counter"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, result := range results {
		n, err := result.Int()
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), n)
	}
}

func TestPipeline_PerCommandError(t *testing.T) {
	client, _ := setupClient(t)

	results, err := client.Pipeline(context.Background(), [][]string{
		{"SET", "k", "v"},
		{"NOSUCHCOMMAND"},
		{"GET", "k"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err())

	var storeErr *executor.StoreError
	assert.ErrorAs(t, results[1].Err(), &storeErr)

	v, ok := results[2].Str()
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestPipeline_Empty(t *testing.T) {
	client, _ := setupClient(t)

	results, err := client.Pipeline(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
