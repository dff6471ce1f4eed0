// Package notify keeps a bounded, most-recent-first notification feed per
// user in the remote store and fans new records out to live listeners via
// publish.
//
// Each feed is a hash keyed by notification id rather than an ordered list:
// marking a record read is then a single field write, so two concurrent
// marks of different notifications cannot overwrite each other, which a
// whole-list rewrite would allow. Order is recovered by sorting on the
// records' creation times at read time.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/pkg/models"
)

const (
	// maxFeedSize caps each user's feed; the oldest records are evicted
	// once the cap is exceeded.
	maxFeedSize = 50
	// feedTTL is refreshed on every mutation, so an inactive user's feed
	// disappears a week after its last change.
	feedTTL = 7 * 24 * time.Hour
	// defaultListLimit applies when a caller asks for a non-positive limit.
	defaultListLimit = 20
)

// Store manages per-user notification feeds.
type Store struct {
	exec   *executor.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a notification store.
func New(exec *executor.Client, logger *zap.Logger) *Store {
	return &Store{
		exec:   exec,
		logger: logger,
		now:    time.Now,
	}
}

func feedKey(userID string) string {
	return "notifications:" + userID
}

// Store saves a notification to the user's feed and publishes it to the
// user's channel for live listeners. Missing fields get defaults: a
// generated id, CreatedAt of now, Read false. The hash write, the feed TTL
// refresh and the size probe go in one pipelined round trip; the publish is
// deliberately outside it, and its failure never fails the store.
func (s *Store) Store(ctx context.Context, userID string, n *models.Notification) error {
	if n.ID == "" {
		n.ID = s.generateID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to marshal notification",
			zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := feedKey(userID)
	results, err := s.exec.Pipeline(ctx, [][]string{
		{"HSET", key, n.ID, string(payload)},
		{"EXPIRE", key, feedTTLSeconds()},
		{"HLEN", key},
	})
	if err != nil {
		s.logger.Warn("failed to store notification",
			zap.String("user_id", userID), zap.String("id", n.ID), zap.Error(err))
		return err
	}

	if size, err := results[2].Int(); err == nil && size > maxFeedSize {
		s.evictOldest(ctx, userID, int(size)-maxFeedSize)
	}

	if _, err := s.exec.Execute(ctx, []string{"PUBLISH", key, string(payload)}); err != nil {
		// Fan-out is best-effort; the record is already stored.
		s.logger.Warn("failed to publish notification",
			zap.String("user_id", userID), zap.String("id", n.ID), zap.Error(err))
	}

	return nil
}

// List returns up to limit notifications, newest first. Empty on any
// failure or on an absent feed.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	all, err := s.readFeed(ctx, userID)
	if err != nil {
		return []*models.Notification{}, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// MarkRead flips the read flag on one notification and refreshes the feed
// TTL. The flip is a single field write keyed by id; only concurrent marks
// of the same notification can race, and they write the same value.
func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	key := feedKey(userID)
	result, err := s.exec.Execute(ctx, []string{"HGET", key, id})
	if err != nil {
		s.logger.Warn("failed to read notification for mark-read",
			zap.String("user_id", userID), zap.String("id", id), zap.Error(err))
		return err
	}
	raw, ok := result.Str()
	if !ok {
		return fmt.Errorf("notification %s not found for user %s", id, userID)
	}

	var n models.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		s.logger.Error("failed to decode stored notification",
			zap.String("user_id", userID), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to decode stored notification: %w", err)
	}
	n.Read = true

	payload, err := json.Marshal(&n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if _, err := s.exec.Pipeline(ctx, [][]string{
		{"HSET", key, id, string(payload)},
		{"EXPIRE", key, feedTTLSeconds()},
	}); err != nil {
		s.logger.Warn("failed to mark notification read",
			zap.String("user_id", userID), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Clear deletes the user's entire feed.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if _, err := s.exec.Execute(ctx, []string{"DEL", feedKey(userID)}); err != nil {
		s.logger.Warn("failed to clear notifications",
			zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// UnreadCount derives the number of unread notifications from the feed at
// read time; no separate counter is maintained, so it cannot drift.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	all, err := s.readFeed(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range all {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// readFeed loads the whole feed sorted newest first.
func (s *Store) readFeed(ctx context.Context, userID string) ([]*models.Notification, error) {
	result, err := s.exec.Execute(ctx, []string{"HGETALL", feedKey(userID)})
	if err != nil {
		s.logger.Warn("failed to read notification feed",
			zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	parts, err := result.Slice()
	if err != nil {
		return nil, err
	}

	// HGETALL replies with a flat field/value sequence.
	feed := make([]*models.Notification, 0, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		raw, ok := parts[i+1].Str()
		if !ok {
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			s.logger.Error("failed to decode stored notification",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		feed = append(feed, &n)
	}

	sort.Slice(feed, func(i, j int) bool { return feed[i].NewerThan(feed[j]) })
	return feed, nil
}

// evictOldest drops the n oldest records from the feed.
func (s *Store) evictOldest(ctx context.Context, userID string, n int) {
	feed, err := s.readFeed(ctx, userID)
	if err != nil || len(feed) == 0 {
		return
	}
	if n > len(feed) {
		n = len(feed)
	}

	command := []string{"HDEL", feedKey(userID)}
	for _, victim := range feed[len(feed)-n:] {
		command = append(command, victim.ID)
	}
	if _, err := s.exec.Execute(ctx, command); err != nil {
		s.logger.Warn("failed to evict old notifications",
			zap.String("user_id", userID), zap.Int("count", n), zap.Error(err))
	}
}

func feedTTLSeconds() string {
	return fmt.Sprintf("%d", int64(feedTTL/time.Second))
}

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func (s *Store) generateID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = idCharset[rand.Intn(len(idCharset))]
	}
	return fmt.Sprintf("%d-%s", s.now().UnixNano(), suffix)
}
