package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GenturixHub/genturix-push/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	eventTTL = 30 * 24 * time.Hour // 30 days

	// EventChannel carries every new event to the SSE feed and the push
	// fan-out worker.
	EventChannel = "security_events"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	rdb := redis.NewClient(opts)
	return &RedisStore{client: rdb}
}

func (s *RedisStore) AddEvent(ctx context.Context, source, level, title, message string, unitID int) (models.SecurityEvent, error) {
	// Generate ID
	id, err := s.client.Incr(ctx, "event:next_id").Result()
	if err != nil {
		return models.SecurityEvent{}, err
	}

	e := models.SecurityEvent{
		ID:        int(id),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Level:     level,
		Title:     title,
		Message:   message,
		UnitID:    unitID,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return models.SecurityEvent{}, err
	}

	key := fmt.Sprintf("event:%d", e.ID)

	// Store event with TTL
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, eventTTL)

	// Add to timeline sorted set (score = timestamp)
	pipe.ZAdd(ctx, "events:timeline", redis.Z{
		Score:  float64(e.CreatedAt.Unix()),
		Member: key,
	})

	// Add to search indices
	if level != "" {
		pipe.SAdd(ctx, fmt.Sprintf("events:level:%s", strings.ToLower(level)), key)
		pipe.Expire(ctx, fmt.Sprintf("events:level:%s", strings.ToLower(level)), eventTTL)
	}
	if source != "" {
		pipe.SAdd(ctx, fmt.Sprintf("events:source:%s", strings.ToLower(source)), key)
		pipe.Expire(ctx, fmt.Sprintf("events:source:%s", strings.ToLower(source)), eventTTL)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return models.SecurityEvent{}, err
	}

	// Publish for the SSE feed and the push fan-out worker
	if err := s.client.Publish(ctx, EventChannel, data).Err(); err != nil {
		fmt.Println("Failed to publish event:", err)
	}

	return e, nil
}

func (s *RedisStore) GetEvents(ctx context.Context) ([]models.SecurityEvent, error) {
	// Get event keys from sorted set (newest first)
	keys, err := s.client.ZRevRange(ctx, "events:timeline", 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var events []models.SecurityEvent
	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Event expired, remove from sorted set
			s.client.ZRem(ctx, "events:timeline", key)
			continue
		} else if err != nil {
			continue
		}

		var e models.SecurityEvent
		if err := json.Unmarshal([]byte(val), &e); err == nil {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *RedisStore) SearchEvents(ctx context.Context, query, level, source string) ([]models.SecurityEvent, error) {
	var keys []string

	// Build intersection of search criteria
	var setKeys []string
	if level != "" {
		setKeys = append(setKeys, fmt.Sprintf("events:level:%s", strings.ToLower(level)))
	}
	if source != "" {
		setKeys = append(setKeys, fmt.Sprintf("events:source:%s", strings.ToLower(source)))
	}

	if len(setKeys) > 0 {
		if len(setKeys) == 1 {
			members, err := s.client.SMembers(ctx, setKeys[0]).Result()
			if err != nil {
				return nil, err
			}
			keys = members
		} else {
			members, err := s.client.SInter(ctx, setKeys...).Result()
			if err != nil {
				return nil, err
			}
			keys = members
		}
	} else {
		// No filters, get all from timeline
		allKeys, err := s.client.ZRevRange(ctx, "events:timeline", 0, -1).Result()
		if err != nil {
			return nil, err
		}
		keys = allKeys
	}

	// Fetch and filter by query text
	var events []models.SecurityEvent
	query = strings.ToLower(query)

	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		} else if err != nil {
			continue
		}

		var e models.SecurityEvent
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			continue
		}

		// Text search in title and message
		if query != "" {
			searchText := strings.ToLower(e.Title + " " + e.Message + " " + e.Source)
			if !strings.Contains(searchText, query) {
				continue
			}
		}

		events = append(events, e)
	}

	return events, nil
}

func (s *RedisStore) PurgeAllEvents(ctx context.Context) error {
	// Delete all keys matching event:*
	iter := s.client.Scan(ctx, 0, "event:*", 0).Iterator()
	keys := []string{}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		s.client.Del(ctx, keys...)
	}

	// Clear timeline
	s.client.Del(ctx, "events:timeline")

	// Clear index sets (use SCAN to find them)
	for _, pattern := range []string{"events:level:*", "events:source:*"} {
		iter = s.client.Scan(ctx, 0, pattern, 0).Iterator()
		indexKeys := []string{}
		for iter.Next(ctx) {
			indexKeys = append(indexKeys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(indexKeys) > 0 {
			s.client.Del(ctx, indexKeys...)
		}
	}

	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, EventChannel)
}
