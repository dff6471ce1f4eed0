package executor

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Result wraps the store's JSON result for one command. Values come back as
// strings, integers, nested arrays (MGET, SCAN, SMEMBERS, HGETALL) or null.
type Result struct {
	raw json.RawMessage
	err error
}

// Err returns the per-command store error, set only on pipeline elements.
func (r Result) Err() error {
	return r.err
}

// IsNil reports whether the store returned a null result (e.g. a GET miss).
func (r Result) IsNil() bool {
	return len(r.raw) == 0 || string(r.raw) == "null"
}

// Str decodes the result as a string. ok is false for null results.
func (r Result) Str() (string, bool) {
	if r.IsNil() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Int decodes the result as an integer. The store returns numbers either as
// JSON numbers or as decimal strings depending on the command.
func (r Result) Int() (int64, error) {
	if r.IsNil() {
		return 0, fmt.Errorf("result is nil")
	}
	var n int64
	if err := json.Unmarshal(r.raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(r.raw, &s); err != nil {
		return 0, fmt.Errorf("result is not an integer: %s", string(r.raw))
	}
	return strconv.ParseInt(s, 10, 64)
}

// Slice decodes an array result into its elements, each itself a Result so
// nested arrays and null elements keep their meaning.
func (r Result) Slice() ([]Result, error) {
	if r.IsNil() {
		return nil, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(r.raw, &parts); err != nil {
		return nil, fmt.Errorf("result is not an array: %w", err)
	}
	results := make([]Result, len(parts))
	for i, p := range parts {
		results[i] = Result{raw: p}
	}
	return results, nil
}

// Strings decodes an array result as strings, skipping null elements.
func (r Result) Strings() ([]string, error) {
	parts, err := r.Slice()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s, ok := p.Str(); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
