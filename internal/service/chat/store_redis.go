package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore keeps each session as a JSON document with a sliding TTL, so a
// session ends once it has been idle for the TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, session *chat.Session) error {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.Version = 1

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrSessionExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*chat.Session, error) {
	key := s.key(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session chat.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}

	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		log.Printf("[session] failed to refresh ttl for %s: %v", id, err)
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *chat.Session) error {
	key := s.key(session.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var stored chat.Session
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("unmarshal session %s: %w", session.ID, err)
		}
		if stored.Version != session.Version {
			return ErrVersionConflict
		}

		next := session.Clone()
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		session.Version = next.Version
		session.UpdatedAt = next.UpdatedAt
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	if s.prefix == "" {
		return "session:" + id
	}
	return s.prefix + ":session:" + id
}
