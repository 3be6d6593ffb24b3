package redisstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	DefaultPrefix  = "whctl:"
	defaultTimeout = 2 * time.Second
)

// Store keeps values in Redis under a key prefix, so several clients can
// share one session.
type Store struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with a PING.
func Dial(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[redisstore.Dial] ping %s", addr)
	}
	return New(client, opts...), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Get reports a miss on any Redis error; the failure is logged.
func (s *Store) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		log.Err(err).Str("key", key).Msg("redis get failed")
		return "", false
	}
	return v, true
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return errors.Wrapf(s.client.Set(ctx, s.prefix+key, value, 0).Err(), "[Store.Set] %s", key)
}

func (s *Store) Remove(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	return errors.Wrap(s.client.Del(ctx, prefixed...).Err(), "[Store.Remove]")
}
