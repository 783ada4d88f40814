package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
)

var (
	ErrSessionExists    = errors.New("session already exists")
	ErrVersionConflict  = errors.New("session version conflict")
	ErrInvalidStoreType = errors.New("invalid session store type")
)

// Store persists sessions keyed by session id.
type Store interface {
	// Create stores a new session with Version set to 1.
	Create(ctx context.Context, session *chat.Session) error
	// Get returns ErrSessionNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*chat.Session, error)
	// Save writes session if its Version matches the stored one, then bumps
	// Version. Returns ErrVersionConflict on a stale write.
	Save(ctx context.Context, session *chat.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// StoreType selects a Store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOptions configures NewStore.
type StoreOptions struct {
	RedisURL  string
	KeyPrefix string
	TTL       time.Duration
}

// NewStore builds the Store named by storeType.
func NewStore(ctx context.Context, storeType StoreType, opts StoreOptions) (Store, error) {
	switch storeType {
	case "", StoreTypeMemory:
		return NewMemoryStoreWithTTL(opts.TTL), nil
	case StoreTypeRedis:
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(redisOpts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisStore(client, opts.KeyPrefix, opts.TTL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, storeType)
	}
}
