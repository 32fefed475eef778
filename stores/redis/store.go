package redis

import (
	"context"
	"errors"
	"fmt"
	"gameboard-server/core"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// Options configures the redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewStore connects to redis and verifies the connection with a PING.
func NewStore(ctx context.Context, opts Options) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return newStoreWithClient(client, opts.KeyPrefix), nil
}

func newStoreWithClient(client redis.UniversalClient, prefix string) *redisStore {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(name string) string {
	return s.prefix + name
}

func (s *redisStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrBlobNotFound
		}
		logrus.WithField("key", s.key(name)).WithError(err).Error("Failed to get blob key")
		return nil, core.StorageError("read "+name, err)
	}
	return data, nil
}

func (s *redisStore) Write(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		logrus.WithField("key", s.key(name)).WithError(err).Error("Failed to set blob key")
		return core.StorageError("write "+name, err)
	}
	return nil
}

func (s *redisStore) Append(ctx context.Context, name string, data []byte) error {
	if err := s.client.Append(ctx, s.key(name), string(data)).Err(); err != nil {
		logrus.WithField("key", s.key(name)).WithError(err).Error("Failed to append blob key")
		return core.StorageError("append "+name, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *redisStore) Close() error {
	return s.client.Close()
}
