// Package storage streams game events to Redis and keeps end-of-game
// snapshots. Each game gets one list of JSON event lines, appended in order,
// which spectator tools tail and replay tools read back.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jordanmarch/clocktower/pkg/eventlog"
)

const (
	// snapshotTTL bounds how long finished-game snapshots are kept.
	snapshotTTL = 7 * 24 * time.Hour
)

// RedisStream implements eventlog.Sink over a Redis list per game.
type RedisStream struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStream implements the event sink interface
var _ eventlog.Sink = (*RedisStream)(nil)

// NewRedisStream creates a stream over the given Redis address.
func NewRedisStream(redisURL string, logger *slog.Logger) *RedisStream {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisStream{client: rdb, logger: logger}
}

// NewRedisStreamWithClient wraps an existing client, used by tests.
func NewRedisStreamWithClient(client *redis.Client, logger *slog.Logger) *RedisStream {
	return &RedisStream{client: client, logger: logger}
}

func eventsKey(gameID uuid.UUID) string {
	return fmt.Sprintf("clocktower:game:%s:events", gameID)
}

func snapshotKey(gameID uuid.UUID) string {
	return fmt.Sprintf("clocktower:game:%s:snapshot", gameID)
}

func (r *RedisStream) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Append pushes one event onto the game's list.
func (r *RedisStream) Append(ctx context.Context, e eventlog.Event) error {
	line, err := e.MarshalLine()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.RPush(ctx, eventsKey(e.GameID), line).Err(); err != nil {
		r.logger.Error("Redis RPUSH failed", "game_id", e.GameID, "error", err)
		return fmt.Errorf("redis rpush failed: %w", err)
	}
	return nil
}

// Events reads back a range of the game's event stream. Start and stop
// follow LRANGE semantics; (0, -1) reads everything.
func (r *RedisStream) Events(ctx context.Context, gameID uuid.UUID, start, stop int64) ([]eventlog.Event, error) {
	lines, err := r.client.LRange(ctx, eventsKey(gameID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	events := make([]eventlog.Event, 0, len(lines))
	for _, line := range lines {
		e, err := eventlog.UnmarshalLine([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("corrupt event in stream: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Len returns the number of events recorded for the game.
func (r *RedisStream) Len(ctx context.Context, gameID uuid.UUID) (int64, error) {
	n, err := r.client.LLen(ctx, eventsKey(gameID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen failed: %w", err)
	}
	return n, nil
}

// Snapshot is the durable end-of-game record.
type Snapshot struct {
	GameID     uuid.UUID `json:"game_id"`
	Winner     string    `json:"winner"`
	Reason     string    `json:"reason"`
	Rounds     int       `json:"rounds"`
	FinishedAt time.Time `json:"finished_at"`
}

// SaveSnapshot stores the end-of-game record with a TTL.
func (r *RedisStream) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(snap.GameID), data, snapshotTTL).Err(); err != nil {
		r.logger.Error("Redis SET failed", "game_id", snap.GameID, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves a stored snapshot. Returns (nil, nil) when no
// snapshot exists for the game.
func (r *RedisStream) LoadSnapshot(ctx context.Context, gameID uuid.UUID) (*Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(gameID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisStream) Close() error {
	return r.client.Close()
}
