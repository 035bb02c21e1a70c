package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"tensosense-server-go/internal/domain/auth/model"
)

const defaultRedisPrefix = "tensosense:user:"

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed user store.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(username string) string {
	return s.prefix + username
}

func (s *redisStore) Get(ctx context.Context, username string) (model.User, error) {
	raw, err := s.client.Get(ctx, s.key(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.User{}, fmt.Errorf("%w: %s", ErrNotFound, username)
		}
		return model.User{}, err
	}
	var user model.User
	if err := sonic.Unmarshal(raw, &user); err != nil {
		return model.User{}, fmt.Errorf("decode user %s: %w", username, err)
	}
	return user, nil
}

func (s *redisStore) Put(ctx context.Context, user model.User) error {
	if user.Username == "" {
		return fmt.Errorf("username required")
	}
	data, err := sonic.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(user.Username), data, 0).Err()
}

func (s *redisStore) List(ctx context.Context) ([]model.User, error) {
	var cursor uint64
	users := make([]model.User, 0)
	pattern := s.prefix + "*"
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			raw, err := s.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			var user model.User
			if err := sonic.Unmarshal(raw, &user); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			users = append(users, user)
		}
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	size, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":   "redis",
		"total":  size,
		"prefix": s.prefix,
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
