package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/referral-ledger/internal/config"
	"github.com/referral-ledger/internal/models"
)

// RedisCache wraps the Redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis connection
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RedisStore keeps each collection under a prefixed key with no expiry.
type RedisStore struct {
	cache  *RedisCache
	prefix string
}

// NewRedisStore creates a store on an open connection.
func NewRedisStore(cache *RedisCache, prefix string) *RedisStore {
	return &RedisStore{cache: cache, prefix: prefix}
}

func (s *RedisStore) key(collection string) string {
	return s.prefix + collection
}

func (s *RedisStore) load(ctx context.Context, collection string) ([]byte, error) {
	data, err := s.cache.Client().Get(ctx, s.key(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}
	return data, nil
}

func (s *RedisStore) save(ctx context.Context, collection string, data []byte) error {
	if err := s.cache.Client().Set(ctx, s.key(collection), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", collection, err)
	}
	return nil
}

// LoadUsers loads the users collection.
func (s *RedisStore) LoadUsers(ctx context.Context) ([]*models.User, error) {
	data, err := s.load(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	return decodeUsers(data)
}

// SaveUsers replaces the users collection.
func (s *RedisStore) SaveUsers(ctx context.Context, users []*models.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}
	return s.save(ctx, CollectionUsers, data)
}

// LoadPayouts loads the payout log.
func (s *RedisStore) LoadPayouts(ctx context.Context) ([]models.Payout, error) {
	data, err := s.load(ctx, CollectionPayouts)
	if err != nil {
		return nil, err
	}
	return decodePayouts(data)
}

// SavePayouts replaces the payout log.
func (s *RedisStore) SavePayouts(ctx context.Context, payouts []models.Payout) error {
	data, err := encodePayouts(payouts)
	if err != nil {
		return err
	}
	return s.save(ctx, CollectionPayouts, data)
}

// LoadSettings loads the settings document.
func (s *RedisStore) LoadSettings(ctx context.Context) (models.Settings, error) {
	data, err := s.load(ctx, CollectionSettings)
	if err != nil {
		return models.Settings{}, err
	}
	return decodeSettings(data)
}

// SaveSettings replaces the settings document.
func (s *RedisStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	data, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	return s.save(ctx, CollectionSettings, data)
}

// SaveUsersAndPayouts writes both collections in one MULTI/EXEC block.
func (s *RedisStore) SaveUsersAndPayouts(ctx context.Context, users []*models.User, payouts []models.Payout) error {
	usersData, err := encodeUsers(users)
	if err != nil {
		return err
	}
	payoutsData, err := encodePayouts(payouts)
	if err != nil {
		return err
	}

	_, err = s.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(CollectionUsers), usersData, 0)
		pipe.Set(ctx, s.key(CollectionPayouts), payoutsData, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save users and payouts: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.cache.Close()
}
