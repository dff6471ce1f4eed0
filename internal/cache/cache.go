// Package cache provides typed read/write access to the remote store plus a
// read-through combinator. Values are stored as JSON strings under
// caller-chosen keys with one of the named TTL tiers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
)

// TTL tiers shared by all callers, so freshness requirements are named
// rather than sprinkled as magic numbers.
const (
	TTLShort    = time.Minute
	TTLMedium   = 5 * time.Minute
	TTLLong     = 15 * time.Minute
	TTLExtended = 30 * time.Minute
	TTLHour     = time.Hour
	TTLDay      = 24 * time.Hour
)

// scanBatch is the COUNT hint passed to SCAN during pattern invalidation.
const scanBatch = 100

// Service executes cache operations against the remote store, with an
// optional in-process fallback consulted when the store errors.
type Service struct {
	exec   *executor.Client
	local  *Local
	logger *zap.Logger
	group  singleflight.Group
}

// New creates a cache service. local may be nil to disable the fallback.
func New(exec *executor.Client, local *Local, logger *zap.Logger) *Service {
	return &Service{
		exec:   exec,
		local:  local,
		logger: logger,
	}
}

// Entry is one key/value pair for SetMulti. A zero TTL means TTLMedium.
type Entry struct {
	Key   string
	Value interface{}
	TTL   time.Duration
}

// GetRaw fetches the serialized value for a key. ok is false on a genuine
// miss; a non-nil error means the store could not be consulted, in which
// case the fallback cache (if any) may still have served the value.
func (s *Service) GetRaw(ctx context.Context, key string) (string, bool, error) {
	result, err := s.exec.Execute(ctx, []string{"GET", key})
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		if s.local != nil {
			if v, ok := s.local.Get(key); ok {
				return v, true, nil
			}
		}
		return "", false, err
	}
	v, ok := result.Str()
	return v, ok, nil
}

// Set serializes value as JSON and stores it with the given TTL. A zero ttl
// uses TTLMedium. On store failure the value is still written through to the
// fallback cache so a warm instance can serve it.
func (s *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLMedium
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to marshal cache value", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if s.local != nil {
		s.local.Set(key, string(data), ttl)
	}

	_, err = s.exec.Execute(ctx, []string{"SET", key, string(data), "EX", seconds(ttl)})
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a key from the store and the fallback cache.
func (s *Service) Delete(ctx context.Context, key string) error {
	if s.local != nil {
		s.local.Delete(key)
	}
	if _, err := s.exec.Execute(ctx, []string{"DEL", key}); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Exists checks whether a key is present. false on any failure.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.exec.Execute(ctx, []string{"EXISTS", key})
	if err != nil {
		s.logger.Warn("cache exists failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	n, err := result.Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Expire resets a key's TTL. false when the key does not exist.
func (s *Service) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.exec.Execute(ctx, []string{"EXPIRE", key, seconds(ttl)})
	if err != nil {
		s.logger.Warn("cache expire failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	n, err := result.Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TTL returns a key's remaining lifetime. Negative durations follow store
// semantics: -1s for no expiry, -2s for a missing key, -1s on failure.
func (s *Service) TTL(ctx context.Context, key string) (time.Duration, error) {
	result, err := s.exec.Execute(ctx, []string{"TTL", key})
	if err != nil {
		s.logger.Warn("cache ttl failed", zap.String("key", key), zap.Error(err))
		return -time.Second, err
	}
	n, err := result.Int()
	if err != nil {
		return -time.Second, err
	}
	return time.Duration(n) * time.Second, nil
}

// GetMultiRaw fetches several keys in one round trip. The returned slice is
// aligned with keys; nil entries are misses. On failure every entry is nil.
func (s *Service) GetMultiRaw(ctx context.Context, keys []string) ([]*string, error) {
	values := make([]*string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	command := append([]string{"MGET"}, keys...)
	result, err := s.exec.Execute(ctx, command)
	if err != nil {
		s.logger.Warn("cache mget failed", zap.Int("keys", len(keys)), zap.Error(err))
		return values, err
	}
	parts, err := result.Slice()
	if err != nil {
		return values, err
	}
	for i, part := range parts {
		if i >= len(values) {
			break
		}
		if v, ok := part.Str(); ok {
			values[i] = &v
		}
	}
	return values, nil
}

// SetMulti stores all entries in one pipelined round trip, each with its
// own TTL.
func (s *Service) SetMulti(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	commands := make([][]string, 0, len(entries))
	for _, e := range entries {
		ttl := e.TTL
		if ttl <= 0 {
			ttl = TTLMedium
		}
		data, err := json.Marshal(e.Value)
		if err != nil {
			s.logger.Error("failed to marshal cache value", zap.String("key", e.Key), zap.Error(err))
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
		if s.local != nil {
			s.local.Set(e.Key, string(data), ttl)
		}
		commands = append(commands, []string{"SET", e.Key, string(data), "EX", seconds(ttl)})
	}

	if _, err := s.exec.Pipeline(ctx, commands); err != nil {
		s.logger.Warn("cache mset failed", zap.Int("entries", len(entries)), zap.Error(err))
		return err
	}
	return nil
}

// InvalidatePattern deletes every key matching a glob pattern and returns
// the count removed. It walks the keyspace with a cursor-driven SCAN,
// deleting each page, and loops until the cursor returns to "0".
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	cursor := "0"
	for {
		result, err := s.exec.Execute(ctx, []string{
			"SCAN", cursor, "MATCH", pattern, "COUNT", strconv.Itoa(scanBatch),
		})
		if err != nil {
			s.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
			return deleted, err
		}
		parts, err := result.Slice()
		if err != nil || len(parts) != 2 {
			return deleted, fmt.Errorf("unexpected SCAN reply for pattern %q", pattern)
		}
		next, _ := parts[0].Str()
		keys, err := parts[1].Strings()
		if err != nil {
			return deleted, err
		}

		if len(keys) > 0 {
			if s.local != nil {
				for _, key := range keys {
					s.local.Delete(key)
				}
			}
			if _, err := s.exec.Execute(ctx, append([]string{"DEL"}, keys...)); err != nil {
				s.logger.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
				return deleted, err
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == "0" {
			break
		}
	}

	s.logger.Debug("cache pattern invalidated",
		zap.String("pattern", pattern),
		zap.Int("deleted", deleted))
	return deleted, nil
}

// CachedValue is the outcome of a read-through lookup; Cached reports
// whether the value came from the store rather than the compute function.
type CachedValue[T any] struct {
	Data   T
	Cached bool
}

// Get fetches and decodes a value. ok is false on a miss; err reports store
// or decode failure. Methods cannot take type parameters, hence the
// top-level function.
func Get[T any](ctx context.Context, s *Service, key string) (T, bool, error) {
	var zero T
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.logger.Error("failed to decode cached value", zap.String("key", key), zap.Error(err))
		return zero, false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return value, true, nil
}

// GetMulti fetches and decodes several keys in one round trip. The result
// is aligned with keys; nil entries are misses or undecodable values.
func GetMulti[T any](ctx context.Context, s *Service, keys []string) ([]*T, error) {
	values := make([]*T, len(keys))
	raws, err := s.GetMultiRaw(ctx, keys)
	if err != nil {
		return values, err
	}
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var value T
		if err := json.Unmarshal([]byte(*raw), &value); err != nil {
			s.logger.Error("failed to decode cached value", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		values[i] = &value
	}
	return values, nil
}

// Cached is the read-through combinator: a hit returns the stored value
// with Cached=true, a miss runs compute, stores the result with the given
// TTL and returns it with Cached=false. Concurrent callers for the same key
// share a single compute via singleflight, so at most one invocation runs
// at a time per key. A store outage degrades to computing on every call.
func Cached[T any](ctx context.Context, s *Service, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (CachedValue[T], error) {
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if hit, ok, _ := Get[T](ctx, s, key); ok {
			return CachedValue[T]{Data: hit, Cached: true}, nil
		}
		data, err := compute(ctx)
		if err != nil {
			return CachedValue[T]{}, err
		}
		// Store failures are logged inside Set; the computed value is
		// still returned to the caller.
		_ = s.Set(ctx, key, data, ttl)
		return CachedValue[T]{Data: data, Cached: false}, nil
	})
	if err != nil {
		return CachedValue[T]{}, err
	}
	return v.(CachedValue[T]), nil
}

func seconds(d time.Duration) string {
	s := int64(d / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.FormatInt(s, 10)
}
