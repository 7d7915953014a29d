// Package seenstore keeps the identities of accepted profiles in a Redis set so
// later runs, on any machine, skip people already found.
package seenstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"profilescout/pkg/config"
	"profilescout/pkg/dedup"
	"profilescout/pkg/errors"
	"profilescout/pkg/logger"
	"profilescout/pkg/models"
	"profilescout/pkg/retry"
)

// Store is a Redis set of profile identities
type Store struct {
	client *redis.Client
	key    string
	retry  retry.Config
	logger logger.Logger
}

// New connects to the Redis server named in cfg
func New(cfg config.StorageConfig, log logger.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewWithClient(client, cfg.RedisKey, retry.DefaultConfig().WithAttempts(cfg.WriteAttempts), log)
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, key string, rc retry.Config, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	rc.Logger = log
	return &Store{client: client, key: key, retry: rc, logger: log.WithField("component", "seenstore")}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Seen returns every stored identity
func (s *Store) Seen(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, err, "smembers "+s.key)
	}
	return members, nil
}

// SaveProfile adds the identity of p to the set
func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	key, ok := dedup.Key(p.ProfileURL)
	if !ok {
		return errors.New(errors.ErrorTypeMissingIdentity, "no identity for %q", p.ProfileURL)
	}

	return retry.Do(ctx, s.retry, "redis sadd", func(ctx context.Context) error {
		if err := s.client.SAdd(ctx, s.key, key).Err(); err != nil {
			return errors.Wrap(errors.ErrorTypeStorage, err, "sadd "+s.key)
		}
		return nil
	})
}

// Forget removes identities from the set
func (s *Store) Forget(ctx context.Context, urls ...string) (int64, error) {
	members := make([]interface{}, 0, len(urls))
	for _, u := range urls {
		if key, ok := dedup.Key(u); ok {
			members = append(members, key)
		}
	}
	if len(members) == 0 {
		return 0, nil
	}
	n, err := s.client.SRem(ctx, s.key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to remove identities: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
