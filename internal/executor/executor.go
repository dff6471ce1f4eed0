// Package executor issues commands to the remote key-value store over its
// HTTP REST protocol. It is the only place in the layer that performs
// network I/O; every higher-level component funnels through Execute or
// Pipeline.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Config holds the two values required to reach the store. If either is
// empty the layer is considered unconfigured and every call fails fast.
type Config struct {
	RestURL   string `mapstructure:"rest_url"`
	RestToken string `mapstructure:"rest_token"`
}

// Configured reports whether both the endpoint and the token are present.
func (c *Config) Configured() bool {
	return c.RestURL != "" && c.RestToken != ""
}

// Client executes single and pipelined commands against the store.
type Client struct {
	config *Config
	http   *http.Client
	logger *zap.Logger
}

// New creates a client. An unconfigured client is still usable: every call
// returns ErrNotConfigured without touching the network, which lets callers
// degrade instead of failing startup.
func New(config *Config, logger *zap.Logger) *Client {
	if config == nil {
		config = &Config{}
	}
	return &Client{
		config: config,
		http:   &http.Client{},
		logger: logger,
	}
}

// Configured reports whether the client can attempt network I/O.
func (c *Client) Configured() bool {
	return c.config.Configured()
}

// Execute runs a single command, given as string tokens (e.g. ["SET", key,
// value, "EX", "60"]), and returns its result.
func (c *Client) Execute(ctx context.Context, command []string) (Result, error) {
	if !c.config.Configured() {
		return Result{}, ErrNotConfigured
	}

	body, err := json.Marshal(command)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode command: %w", err)
	}

	var response struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := c.post(ctx, c.config.RestURL, body, &response); err != nil {
		return Result{}, err
	}

	if response.Error != "" {
		c.logger.Error("store rejected command",
			zap.String("command", command[0]),
			zap.String("store_error", response.Error))
		return Result{}, &StoreError{Message: response.Error}
	}

	return Result{raw: response.Result}, nil
}

// Pipeline posts the full batch as one request to the /pipeline sub-route
// and returns one result per command, in submission order. The store
// executes the batch as a contiguous ordered unit; it is not a transaction,
// and a per-command store error is carried on that command's Result rather
// than failing the whole batch.
func (c *Client) Pipeline(ctx context.Context, commands [][]string) ([]Result, error) {
	if !c.config.Configured() {
		return nil, ErrNotConfigured
	}
	if len(commands) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(commands)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pipeline: %w", err)
	}

	var response []struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := c.post(ctx, c.config.RestURL+"/pipeline", body, &response); err != nil {
		return nil, err
	}

	if len(response) != len(commands) {
		return nil, fmt.Errorf("pipeline returned %d results for %d commands", len(response), len(commands))
	}

	results := make([]Result, len(response))
	for i, r := range response {
		results[i] = Result{raw: r.Result}
		if r.Error != "" {
			c.logger.Error("store rejected pipelined command",
				zap.String("command", commands[i][0]),
				zap.Int("position", i),
				zap.String("store_error", r.Error))
			results[i].err = &StoreError{Message: r.Error}
		}
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build store request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.RestToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("store request failed", zap.Error(err))
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("store returned non-success status", zap.Int("status", resp.StatusCode))
		return &TransportError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode store response: %w", err)
	}
	return nil
}
