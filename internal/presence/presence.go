// Package presence tracks which users are currently active. Each heartbeat
// writes a short-lived per-user record and registers the user in a shared
// online set for cheap membership queries.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/pkg/models"
)

const (
	// presenceTTL is how long a user stays online without a fresh heartbeat.
	presenceTTL = 120 * time.Second
	// setTTL bounds the whole online set; it is refreshed by any user's
	// heartbeat.
	setTTL = 300 * time.Second
	// setKey holds the ids of users considered online.
	setKey = "online_users"
)

// Tracker manages heartbeat-driven presence state.
type Tracker struct {
	exec   *executor.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a presence tracker.
func New(exec *executor.Client, logger *zap.Logger) *Tracker {
	return &Tracker{
		exec:   exec,
		logger: logger,
		now:    time.Now,
	}
}

func presenceKey(userID string) string {
	return "presence:" + userID
}

// SetOnline records a heartbeat: the per-user record is (re)written with a
// 120s TTL and the user is added to the online set, whose own TTL is
// refreshed to 300s. Clients must call this periodically to stay online.
func (t *Tracker) SetOnline(ctx context.Context, userID string, metadata map[string]interface{}) error {
	record := models.Presence{
		UserID:   userID,
		Online:   true,
		LastSeen: t.now(),
		Metadata: metadata,
	}
	payload, err := json.Marshal(&record)
	if err != nil {
		t.logger.Error("failed to marshal presence record",
			zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to marshal presence record: %w", err)
	}

	if _, err := t.exec.Pipeline(ctx, [][]string{
		{"SET", presenceKey(userID), string(payload), "EX", seconds(presenceTTL)},
		{"SADD", setKey, userID},
		{"EXPIRE", setKey, seconds(setTTL)},
	}); err != nil {
		t.logger.Warn("failed to set user online",
			zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// SetOffline is an explicit sign-off: it removes the per-user record and
// the set membership without waiting for TTL expiry.
func (t *Tracker) SetOffline(ctx context.Context, userID string) error {
	if _, err := t.exec.Pipeline(ctx, [][]string{
		{"DEL", presenceKey(userID)},
		{"SREM", setKey, userID},
	}); err != nil {
		t.logger.Warn("failed to set user offline",
			zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// IsOnline checks the per-user key, not the set: the set can hold stale
// ids because its TTL is refreshed by any user's heartbeat. false on any
// failure.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	result, err := t.exec.Execute(ctx, []string{"EXISTS", presenceKey(userID)})
	if err != nil {
		t.logger.Warn("failed to check user presence",
			zap.String("user_id", userID), zap.Error(err))
		return false, err
	}
	n, err := result.Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineUsers returns the online set's membership. Ids of users whose
// individual presence already expired can linger here until the set's own
// TTL lapses, since any heartbeat refreshes the whole set. Empty on any
// failure.
func (t *Tracker) OnlineUsers(ctx context.Context) ([]string, error) {
	result, err := t.exec.Execute(ctx, []string{"SMEMBERS", setKey})
	if err != nil {
		t.logger.Warn("failed to list online users", zap.Error(err))
		return []string{}, err
	}
	members, err := result.Strings()
	if err != nil {
		return []string{}, err
	}
	return members, nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%d", int64(d/time.Second))
}
